package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"studio/internal/assets"
	"studio/internal/backend"
	"studio/internal/config"
	"studio/internal/domain"
	"studio/internal/secret"
	"studio/internal/service"
	"studio/internal/storage"
	"studio/internal/studio"
)

// ─────────────────────────────────────────────────────────────
// Stack — storage, backend client and services shared by the
// desktop app and the standalone MCP server
// ─────────────────────────────────────────────────────────────

const retryBackoff = 300 * time.Millisecond

type stack struct {
	cfg *config.Config

	db        *storage.DB
	mongo     *storage.MongoDraftStore
	drafts    domain.DraftStore
	settings  *storage.SettingsStore
	approvals *storage.ApprovalStore
	secrets   secret.SecretStore

	client *backend.Client
	loader *assets.Loader

	session *studio.Session
	studio  *service.StudioService
	designs *service.DesignService
	exports *service.ExportService
	assets  *service.AssetService
	windows *service.WindowSettingsService
}

func openDB(cfg *config.Config) (*storage.DB, error) {
	dialect, err := storage.ParseDialect(cfg.Storage.Driver)
	if err != nil {
		return nil, err
	}
	if dialect == storage.SQLite && cfg.Storage.DSN == "" {
		return storage.New(cfg.SQLitePath())
	}
	return storage.Open(dialect, cfg.Storage.DSN)
}

// buildStack opens storage and wires every service. Events from the
// services and the editing session go to emitter.
func buildStack(ctx context.Context, cfg *config.Config, secrets secret.SecretStore, emitter service.EventEmitter) (*stack, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	st := &stack{
		cfg:       cfg,
		db:        db,
		settings:  storage.NewSettingsStore(db),
		approvals: storage.NewApprovalStore(db),
		secrets:   secrets,
	}
	st.drafts = storage.NewDraftStore(db)
	if cfg.Drafts.MongoURI != "" {
		m, err := storage.NewMongoDraftStore(ctx, cfg.Drafts.MongoURI, cfg.Drafts.MongoDatabase)
		if err != nil {
			db.Close()
			return nil, err
		}
		st.mongo = m
		st.drafts = m
	}

	st.client = backend.New(cfg.API.BaseURL,
		backend.WithToken(secret.TokenSource(secrets, cfg.API.Token)),
		backend.WithRetry(cfg.API.Retries, retryBackoff),
		backend.WithHTTPClient(&http.Client{Timeout: cfg.GetAPITimeout()}),
	)
	st.loader = assets.NewLoader(
		assets.WithCacheSize(cfg.Assets.CacheSize),
		assets.WithMaxBytes(cfg.Assets.MaxImageSize),
	)

	st.session = studio.NewSession(ctx, emitter, st.loader, studio.SessionOptions{
		HistoryLimit: cfg.Studio.HistoryLimit,
		FlushDelay:   cfg.GetFlushDelay(),
	})
	exporter := studio.NewExporter(st.loader, studio.ExportOptions{
		MinDimension: cfg.Export.MinDimension,
		ThumbnailMax: cfg.Export.ThumbnailMax,
	})

	st.studio = service.NewStudioService(st.client, st.session, emitter)
	st.designs = service.NewDesignService(st.client, service.DesignStores{
		Drafts:  st.drafts,
		Views:   storage.NewViewStateStore(db),
		History: storage.NewHistoryStore(db, cfg.Studio.HistoryLimit),
	}, st.studio, exporter, emitter)
	st.exports = service.NewExportService(exporter, st.session, st.drafts, st.client, emitter)
	st.assets = service.NewAssetService(cfg.Assets.Dir, st.loader, st.client, st.studio, emitter)
	st.windows = service.NewWindowSettingsService(st.settings)
	return st, nil
}

// close waits for in-flight saves and exports, then releases storage.
func (st *stack) close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st.designs.WaitIdle(ctx)
	st.exports.Wait(ctx)
	st.session.Close()
	if err := st.assets.Close(); err != nil {
		log.Printf("app: close asset watcher: %v", err)
	}
	if st.mongo != nil {
		if err := st.mongo.Close(ctx); err != nil {
			log.Printf("app: close mongo: %v", err)
		}
	}
	if err := st.db.Close(); err != nil {
		log.Printf("app: close database: %v", err)
	}
}
