package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gramm/accounts"
	"gramm/auth"
	"gramm/config"
	"gramm/feeds"
	"gramm/graph"
	"gramm/interactions"
	"gramm/lifecycle"
	"gramm/media"
	"gramm/monitoring"
	"gramm/monitoring/middleware"
	"gramm/posts"
	"gramm/server"
	"gramm/storage"
	"gramm/storage/cache"
	"gramm/storage/models"
	"gramm/tasks"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func configureLogging(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warningf("Unknown log level %q, using warning", cfg.Level)
		level = log.WarnLevel
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, func(), error) {
	connectionPool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	sqlDB := stdlib.OpenDBFromPool(connectionPool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		connectionPool.Close()
		return nil, nil, fmt.Errorf("opening gorm: %w", err)
	}
	closeDB := func() {
		sqlDB.Close()
		connectionPool.Close()
	}
	return db, closeDB, nil
}

func openMediaStore(cfg config.MediaConfig) (media.Store, io.Closer, error) {
	switch cfg.Backend {
	case "http":
		return media.NewHTTPStore(cfg.URL, cfg.PublicURL, cfg.Timeout), nil, nil
	case "memory":
		log.Warn("Using the in-memory media store, uploads are lost on restart")
		return media.NewMemoryStore(cfg.PublicURL), nil, nil
	default:
		store, err := media.OpenBadgerStore(cfg.Path, cfg.PublicURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
}

func main() {
	syncTags := flag.Bool("sync-tags", false, "re-extract hashtags of existing posts and exit")
	dryRun := flag.Bool("dry-run", false, "with -sync-tags, only report what would change")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	configureLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer closeDB()
	if err := models.Migrate(db, nil); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	var tagsCache *cache.TagsCache
	if cfg.Redis.Host != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: "", // no password set
			DB:       0,  // use default DB
		})
		defer redisClient.Close()
		tagsCache = cache.NewTagsCache(redisClient, cfg.Redis.Expiration)
	}
	manager := storage.NewManager(db, storage.WithTagsCache(tagsCache))

	if *syncTags {
		if _, err := tasks.NewTagSyncer(manager).SyncTags(ctx, *dryRun); err != nil {
			log.Fatal(err)
		}
		return
	}

	monitoring.Register(prometheus.DefaultRegisterer)

	backend, closer, err := openMediaStore(cfg.Media)
	if err != nil {
		log.Fatalf("Error opening media store: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	store := middleware.NewMediaMiddleware(backend)
	preprocessor := media.NewPreprocessor()

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal(err)
	}

	s := server.NewServer(server.Dependencies{
		Manager: manager,
		Accounts: accounts.NewService(manager, store, preprocessor, accounts.Config{
			BcryptCost:   cfg.Auth.BcryptCost,
			MediaTimeout: cfg.Media.Timeout,
		}),
		Graph: graph.NewEngine(manager),
		Feeds: feeds.NewComposer(manager, cfg.Feed.PageSize),
		Posts: posts.NewService(manager, store, preprocessor, posts.Config{
			MediaTimeout:     cfg.Media.Timeout,
			MediaConcurrency: cfg.Media.Concurrency,
		}),
		Interactions: interactions.NewService(manager),
		Lifecycle: lifecycle.NewManager(manager, store, lifecycle.Config{
			MediaTimeout:     cfg.Media.Timeout,
			MediaConcurrency: cfg.Media.Concurrency,
		}),
		Tokens: tokens,
		Store:  store,
	}, server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	if err := s.Run(ctx); err != nil {
		log.Errorf("Server stopped: %v", err)
	}
}
