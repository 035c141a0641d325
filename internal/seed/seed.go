// Package seed loads demo accounts and a staples catalog into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/logger"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/security"
)

type seedStore interface {
	CreateUser(ctx context.Context, in storage.NewUser) (*storage.User, error)
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	CreateProduct(ctx context.Context, in storage.NewProduct) (*storage.Product, error)
	ListProducts(ctx context.Context, filter storage.ProductFilter) ([]storage.Product, error)
}

// Options controls a seeding run.
type Options struct {
	// Force seeds even when the first fixture user already exists. Records
	// that are already present are still left alone.
	Force    bool
	Password config.PasswordConfig
	Logger   *logger.Logger
}

// Result counts what a run inserted.
type Result struct {
	Skipped         bool `json:"skipped"`
	UsersCreated    int  `json:"usersCreated"`
	ProductsCreated int  `json:"productsCreated"`
}

// Run inserts fixture records that are missing from store. Individual record
// failures are collected so one bad row does not stop the rest.
func Run(ctx context.Context, store seedStore, fixture *Fixture, opts Options) (Result, error) {
	var res Result
	if store == nil || fixture == nil {
		return res, fmt.Errorf("seed store and fixture are required")
	}

	if !opts.Force && len(fixture.Users) > 0 {
		_, err := store.GetUserByEmail(ctx, fixture.Users[0].Email)
		switch {
		case err == nil:
			res.Skipped = true
			if opts.Logger != nil {
				opts.Logger.Info(ctx, "seed.skipped")
			}
			return res, nil
		case !errors.Is(err, storage.ErrNotFound):
			return res, fmt.Errorf("check existing seed: %w", err)
		}
	}

	var errs error
	for _, u := range fixture.Users {
		created, err := seedUser(ctx, store, u, opts.Password)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", u.Email, err))
			continue
		}
		if created {
			res.UsersCreated++
		}
	}

	existing, err := store.ListProducts(ctx, storage.ProductFilter{IncludeInactive: true})
	if err != nil {
		return res, multierr.Append(errs, fmt.Errorf("list products: %w", err))
	}
	names := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		names[strings.ToLower(p.Name)] = struct{}{}
	}
	for _, p := range fixture.Products {
		if _, ok := names[strings.ToLower(p.Name)]; ok {
			continue
		}
		in, err := p.toStorage()
		if err == nil {
			_, err = store.CreateProduct(ctx, in)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("product %s: %w", p.Name, err))
			continue
		}
		res.ProductsCreated++
	}

	if opts.Logger != nil {
		opts.Logger.Info(opts.Logger.WithFields(ctx, map[string]any{
			"users_created":    res.UsersCreated,
			"products_created": res.ProductsCreated,
			"forced":           opts.Force,
		}), "seed.completed")
	}
	return res, errs
}

func seedUser(ctx context.Context, store seedStore, u UserFixture, pw config.PasswordConfig) (bool, error) {
	if _, err := store.GetUserByEmail(ctx, u.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	hash, err := security.HashPassword(u.Password, pw)
	if err != nil {
		return false, err
	}
	_, err = store.CreateUser(ctx, storage.NewUser{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: hash,
		Phone:        u.Phone,
		Role:         u.Role,
		ShopName:     u.ShopName,
		Region:       u.Region,
	})
	if errors.Is(err, storage.ErrDuplicateEmail) {
		return false, nil
	}
	return err == nil, err
}

func (p ProductFixture) toStorage() (storage.NewProduct, error) {
	in := storage.NewProduct{
		Name:          p.Name,
		Description:   p.Description,
		ImageURL:      p.ImageURL,
		Category:      p.Category,
		Tags:          p.Tags,
		TargetUsers:   p.TargetUsers,
		Stock:         p.Stock,
		MinStockLevel: p.MinStockLevel,
	}
	for _, v := range p.Variants {
		price, err := v.price()
		if err != nil {
			return storage.NewProduct{}, err
		}
		bulk, err := v.bulkPrice()
		if err != nil {
			return storage.NewProduct{}, err
		}
		in.Variants = append(in.Variants, storage.NewVariant{
			Label:           v.Label,
			Price:           price,
			BulkPrice:       bulk,
			MinBulkQuantity: v.MinBulkQuantity,
			Unit:            v.Unit,
		})
	}
	return in, nil
}
