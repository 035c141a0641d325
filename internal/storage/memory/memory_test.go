package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/storagetest"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
)

func TestMemoryStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New(WithClock(steppingClock()))
	})
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	store := New()
	product, err := store.CreateProduct(ctx, storage.NewProduct{
		Name:        "Rice",
		Category:    "grains",
		Tags:        []string{"staple"},
		TargetUsers: []enums.UserRole{enums.UserRoleRetail},
		Stock:       5,
	})
	require.NoError(t, err)

	product.Tags[0] = "mutated"
	product.Name = "mutated"

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rice", got.Name)
	assert.Equal(t, []string{"staple"}, got.Tags)
}

// steppingClock advances one millisecond per call so ordering by CreatedAt is stable.
func steppingClock() func() time.Time {
	current := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Millisecond)
		return current
	}
}
