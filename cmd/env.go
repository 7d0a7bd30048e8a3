package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/places"
	"github.com/sells-group/outreach-cli/pkg/telegram"
)

// env bundles the collaborators a command needs to run the pipeline.
type env struct {
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
	transport    telegram.Client
}

// initEnv validates config, opens the snapshot store, and wires the pipeline.
// The telegram session is acquired once here and released by Close.
func initEnv(ctx context.Context, deliver bool) (*env, error) {
	if err := cfg.Validate(deliver); err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	placesClient := places.NewClient(cfg.Places.Key,
		places.WithBaseURL(cfg.Places.BaseURL),
		places.WithRateLimit(cfg.Places.RequestsPerSec),
	)
	aiClient := anthropic.NewClient(cfg.Anthropic.Key)

	var transport telegram.Client
	if deliver {
		transport, err = telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.Recipients)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	return &env{
		Store:        st,
		Orchestrator: pipeline.New(cfg, st, placesClient, aiClient, transport),
		transport:    transport,
	}, nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite", "":
		return store.NewSQLite(sc.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", sc.Driver)
	}
}

func (e *env) Close() {
	if e.transport != nil {
		_ = e.transport.Close()
	}
	_ = e.Store.Close()
}
