package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/happy-game/sync-player/internal/config"
	"github.com/happy-game/sync-player/internal/database"
	"github.com/happy-game/sync-player/internal/handler"
	"github.com/happy-game/sync-player/internal/router"
	"github.com/happy-game/sync-player/internal/service"
	"github.com/happy-game/sync-player/internal/transport"
)

// API is the HTTP + sync transport application.
type API struct {
	cfg     *config.Config
	srv     *http.Server
	db      *gorm.DB
	adapter transport.Adapter
	logger  *zap.Logger
}

// NewAPI creates the API application: validates config, opens the database,
// runs migrations and builds the router with the configured sync transport.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	db, err := database.Open(cfg.DB.Dialect, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if cfg.DB.Dialect == "postgres" {
		if err := database.MigrateUp(cfg.DatabaseURL(), logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	} else {
		if err := database.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	store := database.NewStore(db)
	registry := transport.NewRegistry()
	presence := service.NewPresenceService(store, logger)

	adapter, err := transport.New(cfg, registry, presence, logger)
	if err != nil {
		return nil, err
	}
	presence.Bind(adapter)

	syncSvc := service.NewSyncService(store, adapter, logger)
	adapter.OnMessage(syncSvc.HandleMessage)
	playlistSvc := service.NewPlaylistService(store, syncSvc, adapter, logger)
	roomSvc := service.NewRoomService(store, logger)
	userSvc := service.NewUserService(store, logger)

	userHandler := handler.NewUserHandler(userSvc, logger)
	roomHandler := handler.NewRoomHandler(roomSvc, logger)
	playlistHandler := handler.NewPlaylistHandler(playlistSvc, logger)
	syncHandler := handler.NewSyncHandler(syncSvc, cfg.SyncProtocol, logger)
	health := handler.NewHealthHandler()

	r := router.New(cfg, adapter, userHandler, roomHandler, playlistHandler, syncHandler, health)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, db: db, adapter: adapter, logger: logger}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled; then shuts
// down gracefully, closing every live sync connection.
func (a *API) Run(ctx context.Context) error {
	if err := a.adapter.Start(); err != nil {
		return fmt.Errorf("transport: %w", err)
	}

	a.logger.Info("sync-player listening",
		zap.String("addr", a.srv.Addr),
		zap.String("protocol", a.cfg.SyncProtocol),
		zap.String("dialect", a.cfg.DB.Dialect))

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	if err := a.adapter.Stop(); err != nil {
		a.logger.Warn("transport stop", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	_ = a.logger.Sync()
	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.AppEnv == "development" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zcfg.Build()
}
