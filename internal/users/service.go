package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

// Service exposes user lookups shared by auth, orders and analytics.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*storage.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*storage.User, error)
	Customers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*CustomerDTO, error)
}

type userStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*storage.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in storage.UserUpdate) (*storage.User, error)
	ListUsers(ctx context.Context) ([]storage.User, error)
}

type service struct {
	store userStore
}

func NewService(store userStore) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store is required")
	}
	return &service{store: store}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*storage.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*storage.User, error) {
	user, err := s.store.UpdateUser(ctx, id, update.toStorage())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return user, nil
}

// Customers resolves buyer summaries; a single id is a point lookup, more use one scan.
func (s *service) Customers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*CustomerDTO, error) {
	out := make(map[uuid.UUID]*CustomerDTO, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if len(ids) == 1 {
		user, err := s.store.GetUser(ctx, ids[0])
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
		}
		if user != nil {
			out[user.ID] = CustomerFromStorage(user)
		}
		return out, nil
	}

	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	all, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customers")
	}
	for i := range all {
		if _, ok := wanted[all[i].ID]; ok {
			out[all[i].ID] = CustomerFromStorage(&all[i])
		}
	}
	return out, nil
}
