package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"petition/internal/auth"
	"petition/internal/backup"
	"petition/internal/config"
	"petition/internal/csrf"
	apphttp "petition/internal/http"
	"petition/internal/repository"
	"petition/internal/repository/postgres"
	"petition/internal/repository/sqlite"
	"petition/internal/service"
	"petition/internal/session"
	"petition/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	} else {
		logger.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dir, err := openDirectory(ctx, cfg)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()
	logger.Infof("using %s directory", cfg.Database.Driver)

	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatalf("setup credentials: %v", err)
	}

	secret := []byte(cfg.Session.Secret)
	codec, err := session.NewCodec(deriveKey(secret, "session"), cfg.Session.Lifetime)
	if err != nil {
		logger.Fatalf("setup sessions: %v", err)
	}
	store := session.NewStore(codec, session.CookieOptions{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.Secure,
	})

	var scheduler backup.Scheduler
	if cfg.Backup.Bucket != "" {
		scheduler, err = buildBackups(ctx, cfg, db, logger)
		if err != nil {
			logger.Fatalf("setup backups: %v", err)
		}
		if scheduler != nil {
			if err := scheduler.Start(ctx); err != nil {
				logger.Fatalf("start backups: %v", err)
			}
		}
	}

	if cfg.Server.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	handler, err := apphttp.NewHandler(apphttp.Options{
		Petition:     service.NewPetitionService(dir, hasher),
		Sessions:     store,
		CSRF:         csrf.NewGuard(deriveKey(secret, "csrf")),
		Logger:       logger,
		QueryTimeout: cfg.HTTP.QueryTimeout,
		Ping:         dir.Ping,
	})
	if err != nil {
		logger.Fatalf("setup handler: %v", err)
	}
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}

	logger.Info("bye")
}

func openDirectory(ctx context.Context, cfg config.Config) (*sql.DB, repository.Directory, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, repository.Directory{}, err
		}
		return db, postgres.NewDirectory(db), nil
	default:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, repository.Directory{}, err
		}
		dir, err := sqlite.NewDirectory(ctx, db)
		if err != nil {
			db.Close()
			return nil, repository.Directory{}, err
		}
		return db, dir, nil
	}
}

// deriveKey gives the session codec and the csrf guard independent keys
// from the one configured secret.
func deriveKey(secret []byte, purpose string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}

func buildBackups(ctx context.Context, cfg config.Config, db *sql.DB, logger *logrus.Logger) (backup.Scheduler, error) {
	if cfg.Database.Driver != config.DriverSQLite {
		logger.Warnf("backups are only taken for sqlite, ignoring bucket %s", cfg.Backup.Bucket)
		return nil, nil
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	snapshot := func(ctx context.Context, dest string) error {
		return sqlite.Snapshot(ctx, db, dest)
	}
	return backup.NewScheduler(backup.Config{
		Bucket:    cfg.Backup.Bucket,
		KeyPrefix: cfg.Backup.KeyPrefix,
		Interval:  cfg.Backup.Interval,
		Retain:    cfg.Backup.Retain,
		Logger:    logger,
	}, snapshot, storageSvc), nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Backup.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Backup.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Backup.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Backup.Bucket, cfg.Backup.Region)
	return storage.NewS3Service(client), nil
}
