package seed

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is the YAML document describing demo accounts and catalog.
type Fixture struct {
	Users    []UserFixture    `yaml:"users"`
	Products []ProductFixture `yaml:"products"`
}

type UserFixture struct {
	Name     string         `yaml:"name"`
	Email    string         `yaml:"email"`
	Password string         `yaml:"password"`
	Role     enums.UserRole `yaml:"role"`
	Phone    *string        `yaml:"phone"`
	ShopName *string        `yaml:"shopName"`
	Region   *string        `yaml:"region"`
}

type VariantFixture struct {
	Label           string  `yaml:"label"`
	Price           string  `yaml:"price"`
	BulkPrice       *string `yaml:"bulkPrice"`
	MinBulkQuantity int     `yaml:"minBulkQuantity"`
	Unit            string  `yaml:"unit"`
}

type ProductFixture struct {
	Name          string           `yaml:"name"`
	Description   *string          `yaml:"description"`
	Category      string           `yaml:"category"`
	Stock         int              `yaml:"stock"`
	MinStockLevel *int             `yaml:"minStockLevel"`
	ImageURL      *string          `yaml:"imageUrl"`
	Tags          []string         `yaml:"tags"`
	TargetUsers   []enums.UserRole `yaml:"targetUsers"`
	Variants      []VariantFixture `yaml:"variants"`
}

// DefaultFixture returns the embedded demo data.
func DefaultFixture() (*Fixture, error) {
	return ParseFixture(defaultFixture)
}

// ParseFixture decodes and validates a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	for i, u := range f.Users {
		if u.Email == "" || u.Password == "" {
			return fmt.Errorf("fixture user %d: email and password are required", i)
		}
		if !u.Role.IsValid() {
			return fmt.Errorf("fixture user %s: invalid role %q", u.Email, u.Role)
		}
	}
	for _, p := range f.Products {
		if p.Name == "" || p.Category == "" {
			return fmt.Errorf("fixture product %q: name and category are required", p.Name)
		}
		if p.Stock < 0 {
			return fmt.Errorf("fixture product %s: stock must be >= 0", p.Name)
		}
		for _, v := range p.Variants {
			if _, err := v.price(); err != nil {
				return fmt.Errorf("fixture product %s variant %s: %w", p.Name, v.Label, err)
			}
		}
	}
	return nil
}

func (v VariantFixture) price() (decimal.Decimal, error) {
	return decimal.NewFromString(v.Price)
}

func (v VariantFixture) bulkPrice() (decimal.NullDecimal, error) {
	if v.BulkPrice == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*v.BulkPrice)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
