// Package app assembles the session, REST client, auth coordinator and resource managers
// shared by the dashboard server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"homestock/internal/auth"
	"homestock/internal/client"
	"homestock/internal/config"
	apphttp "homestock/internal/http"
	"homestock/internal/identity"
	"homestock/internal/repository"
	"homestock/internal/repository/memory"
	"homestock/internal/repository/sqlite"
	"homestock/internal/service"
	"homestock/internal/session"
	"homestock/internal/storage"
	"homestock/internal/userinfo"
)

// App is the wired client side of HomeStock.
type App struct {
	Store   *session.Store
	Client  *client.Client
	Auth    *auth.Coordinator
	Handler *apphttp.Handler

	db *sql.DB
}

// OpenStorage opens the key-value storage holding the session. An empty database path keeps
// the session in memory only.
func OpenStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.KeyValueRepository, *sql.DB, error) {
	var (
		kv repository.KeyValueRepository
		db *sql.DB
	)
	if cfg.Database.Path == "" {
		logger.Warn("no database path configured, session will not survive a restart")
		kv = memory.NewKeyValueRepository()
	} else {
		var err error
		db, err = sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		kv = sqlite.NewKeyValueRepository(db)
	}

	if cfg.Session.SealKey != "" {
		key, err := session.ParseSealKey(cfg.Session.SealKey)
		if err != nil {
			closeDB(db)
			return nil, nil, err
		}
		kv = session.NewSealedStorage(kv, key)
	}

	if err := kv.Init(ctx); err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("init session storage: %w", err)
	}
	return kv, db, nil
}

// NewAuth builds the session store, REST client and coordinator. A 401 seen by the client
// signs the coordinator out.
func NewAuth(cfg config.Config, kv repository.KeyValueRepository, logger *logrus.Logger) (*session.Store, *client.Client, *auth.Coordinator, error) {
	store := session.NewStore(kv, session.WithLogger(logger), session.WithDefaultTTL(cfg.Session.DefaultTTL))

	api, err := client.New(client.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Tokens:  store,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	resolver := identity.NewDefaultResolver(api, cfg.Auth.ProfileEndpoints, logger)
	coord := auth.NewCoordinator(auth.Config{
		CheckInterval:  cfg.Session.CheckInterval,
		RefreshTimeout: cfg.Session.RefreshTimeout,
		Logger:         logger,
	}, store, api, resolver)
	api.OnUnauthorized(coord.HandleUnauthorized)

	return store, api, coord, nil
}

// Build wires everything the dashboard server needs.
func Build(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*App, error) {
	kv, db, err := OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store, api, coord, err := NewAuth(cfg, kv, logger)
	if err != nil {
		closeDB(db)
		return nil, err
	}

	exportStore, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	handler := apphttp.NewHandler(apphttp.Deps{
		Auth:          coord,
		Groups:        service.NewGroupManager(api, coord, logger),
		Places:        service.NewPlaceManager(api, coord, logger),
		Products:      service.NewProductManager(api, logger),
		Lists:         service.NewListManager(api, logger),
		Categories:    service.NewCategoryManager(api, logger),
		Notifications: service.NewNotificationManager(api, logger),
		Exports: service.NewExportService(service.ExportConfig{
			Bucket:    cfg.Storage.Bucket,
			KeyPrefix: cfg.Storage.KeyPrefix,
			Logger:    logger,
		}, api, exportStore, coord),
		UserInfo:      userinfo.NewCache(api, cfg.Cache.UserInfoTTL, logger),
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Logger:        logger,
	})

	return &App{Store: store, Client: api, Auth: coord, Handler: handler, db: db}, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// buildStorage returns nil when exports are disabled.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, inventory exports disabled")
		return nil, nil
	}

	switch strings.ToLower(cfg.Storage.Driver) {
	case "memory":
		logger.Infof("keeping exports for bucket %s in memory", cfg.Storage.Bucket)
		return storage.NewMemoryService(), nil
	case "", "s3":
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(s3Client), nil
}

func closeDB(db *sql.DB) {
	if db != nil {
		_ = db.Close()
	}
}
