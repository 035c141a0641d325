package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/memory"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/users"
	pkgAuth "github.com/kiranaconnect/kiranaconnect-backend/pkg/auth"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/auth/session"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/enums"
	pkgerrors "github.com/kiranaconnect/kiranaconnect-backend/pkg/errors"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "kiranaconnect",
	ExpirationMinutes: 60,
}

type testDeps struct {
	svc      Service
	store    *memory.Store
	sessions *session.Manager
}

func newTestService(t *testing.T) testDeps {
	t.Helper()
	store := memory.New()
	userSvc, err := users.NewService(store)
	if err != nil {
		t.Fatalf("users service: %v", err)
	}
	sessions, err := session.NewInMemoryManager(testJWT)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Store:          store,
		Users:          userSvc,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return testDeps{svc: svc, store: store, sessions: sessions}
}

func TestRegisterOpensSession(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()

	res, err := deps.svc.Register(ctx, RegisterRequest{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.Role != enums.UserRoleRetail {
		t.Fatalf("expected default retail role, got %s", res.User.Role)
	}
	if res.User.Email != "asha@example.com" {
		t.Fatalf("expected normalized email, got %s", res.User.Email)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, res.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	ok, err := deps.sessions.HasSession(ctx, claims.ID)
	if err != nil || !ok {
		t.Fatalf("expected live session for jti, ok=%v err=%v", ok, err)
	}
}

func TestRegisterRejections(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	shop := "Kumar General Store"

	if _, err := deps.svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret1", Role: enums.UserRoleVendor, ShopName: &shop}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	cases := []struct {
		name string
		req  RegisterRequest
		code pkgerrors.Code
	}{
		{"duplicate email", RegisterRequest{Name: "B", Email: "A@example.com", Password: "secret1"}, pkgerrors.CodeConflict},
		{"admin role", RegisterRequest{Name: "B", Email: "b@example.com", Password: "secret1", Role: enums.UserRoleAdmin}, pkgerrors.CodeForbidden},
		{"vendor without shop", RegisterRequest{Name: "B", Email: "b@example.com", Password: "secret1", Role: enums.UserRoleVendor}, pkgerrors.CodeValidation},
		{"short password", RegisterRequest{Name: "B", Email: "b@example.com", Password: "123"}, pkgerrors.CodeValidation},
		{"unknown role", RegisterRequest{Name: "B", Email: "b@example.com", Password: "secret1", Role: "wholesaler"}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := deps.svc.Register(ctx, tc.req)
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}

	all, err := deps.store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(all))
	}
}

func TestLogin(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	if _, err := deps.svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	res, err := deps.svc.Login(ctx, LoginRequest{Email: " A@example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.ExpiresAt.IsZero() {
		t.Fatal("expected token and expiry")
	}

	_, err = deps.svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "wrong"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	_, err = deps.svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	res, err := deps.svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	inactive := false
	if _, err := deps.store.UpdateUser(ctx, res.User.ID, storage.UserUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = deps.svc.Login(ctx, LoginRequest{Email: "a@example.com", Password: "secret1"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginAcceptsImportedBcryptHash(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("vendor123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if _, err := deps.store.CreateUser(ctx, storage.NewUser{
		Name:         "Imported",
		Email:        "imported@example.com",
		PasswordHash: string(hash),
		Role:         enums.UserRoleVendor,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := deps.svc.Login(ctx, LoginRequest{Email: "imported@example.com", Password: "vendor123"}); err != nil {
		t.Fatalf("login with bcrypt hash: %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	res, err := deps.svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, res.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if err := deps.svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	ok, err := deps.sessions.HasSession(ctx, claims.ID)
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if ok {
		t.Fatal("expected session to be revoked")
	}
}

func TestMeAndUpdateProfile(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	res, err := deps.svc.Register(ctx, RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	region := "Pune"
	updated, err := deps.svc.UpdateProfile(ctx, res.User.ID, users.ProfileUpdate{Region: &region})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Region == nil || *updated.Region != region {
		t.Fatalf("expected region %q", region)
	}

	me, err := deps.svc.Me(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Region == nil || *me.Region != region {
		t.Fatal("expected me to reflect profile update")
	}

	_, err = deps.svc.Me(ctx, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestSessionExpiryMatchesJWTConfig(t *testing.T) {
	deps := newTestService(t)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := deps.svc.(*service)
	svc.now = func() time.Time { return fixed }

	res, err := svc.Register(context.Background(), RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !res.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Fatalf("expected expiry one hour out, got %s", res.ExpiresAt)
	}
}
