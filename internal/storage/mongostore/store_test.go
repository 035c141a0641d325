package mongostore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage"
	"github.com/kiranaconnect/kiranaconnect-backend/internal/storage/storagetest"
	"github.com/kiranaconnect/kiranaconnect-backend/pkg/config"
	pkgmongo "github.com/kiranaconnect/kiranaconnect-backend/pkg/mongo"
)

const testURIEnv = "KIRANA_TEST_MONGO_URI"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv(testURIEnv)
	if uri == "" {
		t.Skipf("%s not set", testURIEnv)
	}

	ctx := context.Background()
	database := "kc_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	client, err := pkgmongo.New(ctx, config.MongoConfig{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Database().Drop(context.Background())
		_ = client.Close()
	})

	store, err := New(ctx, client)
	require.NoError(t, err)
	return store
}

func TestMongoStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Fatal("expected nil client to fail")
	}
}
