package users

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/memory"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

func TestUpdateProfile(t *testing.T) {
	store := memory.New()
	user := mustCreateUser(t, store, "kumar@example.com")
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	shop := "Kumar Stores"
	updated, err := svc.UpdateProfile(context.Background(), user.ID, ProfileUpdate{ShopName: &shop})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.ShopName == nil || *updated.ShopName != shop {
		t.Fatalf("expected shop name %q, got %v", shop, updated.ShopName)
	}
	if updated.Name != user.Name {
		t.Fatalf("expected name to be unchanged")
	}
}

func TestGetMissingUser(t *testing.T) {
	svc, _ := NewService(memory.New())
	_, err := svc.Get(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCustomers(t *testing.T) {
	store := memory.New()
	a := mustCreateUser(t, store, "a@example.com")
	b := mustCreateUser(t, store, "b@example.com")
	mustCreateUser(t, store, "c@example.com")
	svc, _ := NewService(store)

	got, err := svc.Customers(context.Background(), []uuid.UUID{a.ID, b.ID, uuid.New()})
	if err != nil {
		t.Fatalf("customers: %v", err)
	}
	if len(got) != 2 || got[a.ID].Email != "a@example.com" || got[b.ID].Email != "b@example.com" {
		t.Fatalf("unexpected customers %+v", got)
	}

	single, err := svc.Customers(context.Background(), []uuid.UUID{a.ID})
	if err != nil || len(single) != 1 {
		t.Fatalf("single lookup: %v %+v", err, single)
	}
}

func TestFromStorageOmitsPassword(t *testing.T) {
	raw, err := json.Marshal(FromStorage(&storage.User{ID: uuid.New(), PasswordHash: "secret-hash"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "secret-hash") {
		t.Fatalf("password hash leaked: %s", raw)
	}
	if FromStorage(nil) != nil {
		t.Fatal("expected nil for nil user")
	}
}

func mustCreateUser(t *testing.T, store storage.Store, email string) *storage.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), storage.NewUser{
		Name:         "Test",
		Email:        email,
		PasswordHash: "hash",
		Role:         enums.UserRoleRetail,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
