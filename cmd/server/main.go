package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"uebergabe/config"
	"uebergabe/db"
	"uebergabe/db/mongo"
	"uebergabe/db/postgres"
	"uebergabe/db/redis"
	"uebergabe/db/sqlite"
	"uebergabe/geocode"
	"uebergabe/handlers"
	"uebergabe/logger"
	"uebergabe/repository"
	"uebergabe/routes"
	"uebergabe/utils"
	"uebergabe/wizard"
)

func main() {
	// Load config from .env or the environment
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	repo, closeDB, err := openRepository(cfg, log)
	if err != nil {
		log.Fatal("storage unavailable", zap.String("db_type", cfg.DBType), zap.Error(err))
	}
	defer closeDB()

	renderer := &utils.PDFGenerator{
		ExecPath: cfg.ChromePath,
		Brand:    cfg.BrandName,
		Settle:   cfg.RenderSettle,
		Logger:   log,
	}

	opts := wizard.Options{
		Repo:          repo,
		Renderer:      renderer,
		Submitter:     utils.NewWebhookClient(cfg.WebhookURL, log),
		AutosaveDelay: cfg.AutosaveDelay,
		SavePath:      cfg.PDFSavePath,
		Logger:        log,
	}
	if cfg.R2Enabled() {
		opts.Archiver = utils.NewArtifactStore(utils.R2Settings{
			Bucket:          cfg.R2Bucket,
			AccountID:       cfg.R2AccountID,
			PublicURL:       cfg.R2PublicURL,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
		})
	}
	session := wizard.NewSession(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		log.Fatal("failed to start session", zap.Error(err))
	}
	defer session.Close()

	suggester := geocode.NewSuggester(
		geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent),
		geocode.DebounceDelay,
		log,
	)
	defer suggester.Close()

	handler := routes.SetupRoutes(routes.Handlers{
		Session: &handlers.SessionHandler{Session: session},
		History: &handlers.HistoryHandler{Repo: repo, Session: session},
		Geocode: &handlers.GeocodeHandler{Suggester: suggester},
		Render:  &handlers.RenderHandler{Renderer: renderer},
	}, cfg.AuthTokenHash)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server running", zap.String("port", cfg.Port), zap.String("db_type", cfg.DBType))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openRepository(cfg *config.Config, log *zap.Logger) (repository.ProtocolRepository, func(), error) {
	noop := func() {}

	switch db.DBType(cfg.DBType) {
	case db.SQLite, "":
		lite := sqlite.NewSQLiteDB(cfg.SQLitePath)
		if err := lite.Connect(); err != nil {
			return nil, noop, err
		}
		if err := db.RunMigrations(lite.Conn, db.SQLite, log); err != nil {
			lite.Disconnect()
			return nil, noop, err
		}
		return repository.NewSQLiteProtocolRepo(lite.Conn), func() { lite.Disconnect() }, nil

	case db.Postgres:
		pg := postgres.NewPostgresDB(cfg.PostgresURL)
		if err := pg.Connect(); err != nil {
			return nil, noop, err
		}
		if err := db.RunMigrations(pg.Conn, db.Postgres, log); err != nil {
			pg.Disconnect()
			return nil, noop, err
		}
		return repository.NewPostgresProtocolRepo(pg.Conn), func() { pg.Disconnect() }, nil

	case db.Mongo:
		mg := mongo.NewMongoDB(cfg.MongoURL, cfg.MongoDB)
		if err := mg.Connect(); err != nil {
			return nil, noop, err
		}
		return repository.NewMongoProtocolRepo(mg.Client, cfg.MongoDB), func() { mg.Disconnect() }, nil

	case db.Redis:
		rd := redis.NewRedisDB(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rd.Connect(); err != nil {
			return nil, noop, err
		}
		return repository.NewRedisProtocolRepo(rd.Client, "uebergabe"), func() { rd.Disconnect() }, nil

	case db.Memory:
		log.Warn("using in-memory storage, drafts and history are lost on restart")
		return repository.NewMemoryProtocolRepo(), noop, nil
	}
	return nil, noop, fmt.Errorf("DB_TYPE %q not supported", cfg.DBType)
}
