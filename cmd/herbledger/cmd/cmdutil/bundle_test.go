package cmdutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/config"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/events"
	ledgermw "github.com/terraconstructs/herbledger/cmd/herbledger/internal/middleware"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/migrations"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/server"
)

func testConfig(t *testing.T, store string) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseURL:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxDBConnections:    1,
		AdminPrincipal:      "admin",
		ContentStore:        store,
		ContentCIDVersion:   1,
		MetadataSchemaCache: 4,
		TrailCacheSize:      4,
	}
}

func migrateBundle(t *testing.T, b *Bundle) {
	t.Helper()
	ctx := context.Background()
	m := migrate.NewMigrator(b.DB, migrations.Migrations)
	require.NoError(t, m.Init(ctx))
	_, err := m.Migrate(ctx)
	require.NoError(t, err)
}

func TestNewBundle_WiresServices(t *testing.T) {
	cfg := testConfig(t, config.ContentStoreDatabase)
	b, err := NewBundle(cfg, zerolog.Nop(), BundleOptions{Metrics: true})
	require.NoError(t, err)
	defer b.Close()
	migrateBundle(t, b)

	var kinds []events.Kind
	b.Bus.Subscribe(func(e events.Event) { kinds = append(kinds, e.Kind) })

	ctx := context.Background()
	require.NoError(t, b.Roles.Grant(ctx, "admin", "A", custody.RoleCollector))

	id, err := b.Content.Put(ctx, []byte("collector notes"))
	require.NoError(t, err)
	created, err := b.Ledger.CreateBatch(ctx, "A", "REF", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.BatchID)

	assert.Equal(t, []events.Kind{
		events.KindRoleGranted,
		events.KindBatchCreated,
		events.KindCollectorDataAdded,
	}, kinds)

	tr, err := b.Trail.Assemble(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, id, tr.Stages[0].ContentID)
	// Plain text is not a collector document.
	assert.Contains(t, tr.Stages[0].Error, "not JSON")
}

func TestNewBundle_ContentPersists(t *testing.T) {
	cfg := testConfig(t, config.ContentStoreDatabase)

	first, err := NewBundle(cfg, zerolog.Nop(), BundleOptions{})
	require.NoError(t, err)
	migrateBundle(t, first)
	id, err := first.Content.Put(context.Background(), []byte("kept"))
	require.NoError(t, err)
	first.Close()

	second, err := NewBundle(cfg, zerolog.Nop(), BundleOptions{})
	require.NoError(t, err)
	defer second.Close()
	data, err := second.Content.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
}

func TestNewBundle_MemoryContent(t *testing.T) {
	cfg := testConfig(t, config.ContentStoreMemory)
	b, err := NewBundle(cfg, zerolog.Nop(), BundleOptions{})
	require.NoError(t, err)
	defer b.Close()

	id, err := b.Content.Put(context.Background(), []byte("volatile"))
	require.NoError(t, err)
	ok, err := b.Content.Has(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewBundle_WalletAdminGrantsOverHTTP(t *testing.T) {
	const wallet = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

	v := viper.New()
	v.Set("database_url", filepath.Join(t.TempDir(), "ledger.db"))
	v.Set("admin_principal", wallet)
	v.Set("content_store", config.ContentStoreMemory)
	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)

	b, err := NewBundle(cfg, zerolog.Nop(), BundleOptions{})
	require.NoError(t, err)
	defer b.Close()
	migrateBundle(t, b)

	srv := httptest.NewServer(server.NewRouter(server.RouterOptions{
		Ledger:    b.Ledger,
		Roles:     b.Roles,
		Trail:     b.Trail,
		Content:   b.Content,
		Validator: b.Validator,
		Logger:    zerolog.Nop(),
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/roles/grant",
		strings.NewReader(`{"principal":"0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359","role":"collector"}`))
	require.NoError(t, err)
	req.Header.Set(ledgermw.PrincipalHeader, wallet)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ok, err := b.Roles.HasRole(context.Background(), "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", custody.RoleCollector)
	require.NoError(t, err)
	assert.True(t, ok)
}
