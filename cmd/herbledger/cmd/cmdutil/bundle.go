package cmdutil

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/config"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/content"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/bunx"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/events"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/metadata"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/repository"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/ledger"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/roles"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/trail"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/telemetry"
)

// BundleOptions controls how the CLI constructs the ledger services.
type BundleOptions struct {
	// Metrics attaches otel instruments to the services.
	Metrics bool
}

// Bundle holds the wired ledger services together with their database
// connection so commands can share one setup path with the server.
type Bundle struct {
	DB        *bun.DB
	Bus       *events.Bus
	Roles     *roles.Service
	Ledger    *ledger.Service
	Content   *content.BlockStore
	Validator *metadata.Validator
	Trail     *trail.Service
}

// Close releases the underlying database connection.
func (b *Bundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// NewBundle connects to the database and wires repositories, the event bus
// and every ledger service. Role and ledger mutations share one write lock.
func NewBundle(cfg *config.Config, log zerolog.Logger, opts BundleOptions) (*Bundle, error) {
	db, err := bunx.NewDB(cfg.DatabaseURL, bunx.Options{MaxConnections: cfg.MaxDBConnections})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var ledgerMetrics *telemetry.LedgerMetrics
	if opts.Metrics {
		if ledgerMetrics, err = telemetry.NewLedgerMetrics(); err != nil {
			_ = bunx.Close(db)
			return nil, fmt.Errorf("create ledger metrics: %w", err)
		}
	}

	bus := events.NewBus(log)
	bus.Subscribe(events.LogSubscriber(log))

	writeLock := &sync.Mutex{}
	roleSvc := roles.NewService(repository.NewBunRoleRepository(db), cfg.AdminPrincipal).
		WithBus(bus).
		WithLogger(log).
		WithMetrics(ledgerMetrics).
		WithWriteLock(writeLock)
	ledgerSvc := ledger.NewService(
		repository.NewBunBatchRepository(db),
		repository.NewBunEventRepository(db),
		roleSvc,
	).
		WithBus(bus).
		WithLogger(log).
		WithMetrics(ledgerMetrics).
		WithWriteLock(writeLock)

	var store *content.BlockStore
	if cfg.ContentStore == config.ContentStoreMemory {
		store, err = content.NewMemoryBlockStore(cfg.ContentCIDVersion)
	} else {
		store, err = content.NewBlockStore(repository.NewBunBlockDatastore(db), cfg.ContentCIDVersion)
	}
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("create content store: %w", err)
	}
	validator, err := metadata.NewValidator(cfg.MetadataSchemaCache)
	if err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("create metadata validator: %w", err)
	}
	trailSvc, err := trail.NewService(ledgerSvc, store, validator, cfg.TrailCacheSize)
	if err != nil {
		_ = bunx.Close(db)
		return nil, err
	}
	trailSvc.WithLogger(log)

	return &Bundle{
		DB:        db,
		Bus:       bus,
		Roles:     roleSvc,
		Ledger:    ledgerSvc,
		Content:   store,
		Validator: validator,
		Trail:     trailSvc,
	}, nil
}
