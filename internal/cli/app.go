package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/entity"
	"github.com/goliatone/go-formflow/pkg/notify"
	"github.com/goliatone/go-formflow/pkg/rules"
	"github.com/goliatone/go-formflow/pkg/search"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/store/breaker"
	"github.com/goliatone/go-formflow/pkg/store/memory"
	"github.com/goliatone/go-formflow/pkg/store/sqlite"
	"github.com/goliatone/go-formflow/pkg/store/supabase"
	"github.com/goliatone/go-formflow/pkg/upload"
)

// openApp builds the store, rule catalog and upload storage described by cfg.
// The returned closer releases the store.
func openApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*formflow.App, func() error, error) {
	st, storage, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Breaker.Enabled {
		st = breaker.Wrap(st, breaker.Config{
			Name:             cfg.Store.Backend,
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MinRequests:      cfg.Breaker.MinRequests,
		}, logger)
	}

	catalog, err := loadCatalog(ctx, cfg.Rules)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}

	uploads := upload.NewService(storage, upload.WithPrefix(cfg.Upload.Prefix), upload.WithLogger(logger))
	app, err := formflow.New(st,
		formflow.WithLogger(logger),
		formflow.WithCatalog(catalog),
		formflow.WithUploads(uploads),
		formflow.WithNotifier(notify.NewLogNotifier(logger)),
		formflow.WithDebounce(entity.Category, cfg.Debounce.Category),
		formflow.WithDebounce(entity.Service, cfg.Debounce.Service),
		formflow.WithDebounce(entity.Provider, cfg.Debounce.Provider),
		formflow.WithDebounce(entity.User, cfg.Debounce.User),
		formflow.WithSearchOptions(
			search.WithDefaultLimit(cfg.Search.DefaultLimit),
			search.WithMaxLimit(cfg.Search.MaxLimit),
			search.WithEmptySearchMode(search.EmptySearchMode(cfg.Search.EmptyMode)),
			search.WithWindow(cfg.Debounce.Search),
		),
	)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return app, closer, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, upload.Storage, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		st, err := sqlite.OpenStore(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := seedStore(ctx, cfg.Store.Seed, st); err != nil {
			_ = st.Close()
			return nil, nil, nil, err
		}
		return st, upload.NewMemoryStorage(cfg.Upload.BaseURL), st.Close, nil

	case config.BackendSupabase:
		tables := make(map[entity.Type]string, len(cfg.Store.Supabase.Tables))
		for name, table := range cfg.Store.Supabase.Tables {
			t, err := entity.ParseType(name)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("store.supabase.tables: %w", err)
			}
			tables[t] = table
		}
		st, err := supabase.New(supabase.Config{
			URL:            cfg.Store.Supabase.URL,
			Key:            cfg.Store.Supabase.Key,
			Tables:         tables,
			CategoryColumn: cfg.Store.Supabase.CategoryColumn,
			Bucket:         cfg.Store.Supabase.Bucket,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		bucket, err := supabase.NewBucket(st.Client(), cfg.Store.Supabase.Bucket)
		if err != nil {
			return nil, nil, nil, err
		}
		return st, bucket, noop, nil

	default:
		st := memory.New()
		if err := seedStore(ctx, cfg.Store.Seed, st); err != nil {
			return nil, nil, nil, err
		}
		return st, upload.NewMemoryStorage(cfg.Upload.BaseURL), noop, nil
	}
}

// seedStore creates every fixture record through the mutator, so the sqlite
// unique indexes see them too.
func seedStore(ctx context.Context, path string, st store.Store) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	records, err := memory.LoadSeed(os.DirFS(filepath.Dir(path)), filepath.Base(path))
	if err != nil {
		return err
	}
	if mem, ok := st.(*memory.Store); ok {
		mem.Seed(records...)
		return nil
	}
	for _, rec := range records {
		if _, err := st.Create(ctx, rec.Type, recordPayload(rec)); err != nil {
			var rejected *store.RejectedError
			if errors.As(err, &rejected) {
				continue
			}
			return fmt.Errorf("seed %s %q: %w", rec.Type, rec.Name, err)
		}
	}
	return nil
}

func recordPayload(rec entity.Record) entity.Payload {
	payload := entity.Payload(entity.ToRow(rec))
	if strings.TrimSpace(rec.ID) == "" {
		delete(payload, "id")
	}
	if rec.CategoryName != "" {
		payload["category_name"] = rec.CategoryName
	}
	return payload
}

// loadCatalog layers an optional rules file or directory and optional
// OpenAPI schemas over the built-in catalog.
func loadCatalog(ctx context.Context, cfg config.RulesConfig) (*rules.Catalog, error) {
	catalog := rules.DefaultCatalog()

	if path := strings.TrimSpace(cfg.File); path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("rules file: %w", err)
		}
		if info.IsDir() {
			loaded, err := rules.LoadFS(os.DirFS(path))
			if err != nil {
				return nil, err
			}
			catalog.Merge(loaded)
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("rules file: %w", err)
			}
			sets, err := rules.Parse(data, path)
			if err != nil {
				return nil, err
			}
			catalog.Merge(rules.NewCatalog(sets...))
		}
	}

	if path := strings.TrimSpace(cfg.OpenAPI); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("rules openapi: %w", err)
		}
		for name, schema := range cfg.OpenAPISchemas {
			t, err := entity.ParseType(name)
			if err != nil {
				return nil, fmt.Errorf("rules.openapi_schemas: %w", err)
			}
			set, err := rules.FromOpenAPI(ctx, raw, schema, t)
			if err != nil {
				return nil, err
			}
			catalog.Set(set)
		}
	}
	return catalog, nil
}
