package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/muniops/internal/config"
	"github.com/sells-group/muniops/internal/gateway"
	"github.com/sells-group/muniops/internal/identity"
	"github.com/sells-group/muniops/internal/metrics"
	"github.com/sells-group/muniops/internal/sample"
	"github.com/sells-group/muniops/internal/store"
)

// appEnv is the composition root shared by the commands that need a gateway.
type appEnv struct {
	Store    store.Store
	Gateway  *gateway.Gateway
	Registry *prometheus.Registry
}

// Close releases the store.
func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	lookup, err := initLookup(cfg.Identity, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	fixtures, err := loadFixtures(cfg.Gateway.FixturesDir)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	gw, err := gateway.New(gateway.Options{
		Lookup:         lookup,
		Store:          st,
		Fixtures:       fixtures,
		Metrics:        metrics.New(reg),
		LookupAttempts: cfg.Gateway.LookupAttempts,
		RetryDelay:     cfg.Gateway.RetryDelay(),
		LookupTimeout:  cfg.Gateway.LookupTimeout(),
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &appEnv{Store: st, Gateway: gw, Registry: reg}, nil
}

// loadFixtures reads the sample datasets from dir, or the embedded copy when
// dir is empty.
func loadFixtures(dir string) (*sample.Fixtures, error) {
	if dir == "" {
		return sample.Load()
	}
	fx, err := sample.LoadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "load fixtures from %s", dir)
	}
	zap.L().Info("using sample fixtures from directory", zap.String("dir", dir))
	return fx, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "muniops.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initLookup(ic config.IdentityConfig, orgs store.OrganizationStore) (identity.Lookup, error) {
	switch ic.Provider {
	case config.ProviderStatic:
		return identity.NewStatic(ic.OrganizationID, ic.Plan), nil
	case config.ProviderStore:
		return identity.NewStoreLookup(orgs, ic.UserID), nil
	case config.ProviderHTTP:
		return identity.NewHTTPLookup(identity.HTTPOptions{
			BaseURL:    ic.BaseURL,
			Token:      ic.Token,
			Timeout:    time.Duration(ic.TimeoutSecs) * time.Second,
			RatePerSec: ic.RatePerSec,
		}), nil
	default:
		return nil, eris.Errorf("unsupported identity provider: %s", ic.Provider)
	}
}
