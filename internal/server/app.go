// Package server initializes and runs the gateway application: it wires
// configuration, storage, services, and the HTTP facade, and handles
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/apetrov/assetgate/internal/logging"
	"github.com/apetrov/assetgate/internal/server/catalog"
	"github.com/apetrov/assetgate/internal/server/config"
	"github.com/apetrov/assetgate/internal/server/db"
	"github.com/apetrov/assetgate/internal/server/httpapi"
	"github.com/apetrov/assetgate/internal/server/services"
	"github.com/apetrov/assetgate/internal/server/signer"
	"github.com/apetrov/assetgate/internal/server/storage"
	"github.com/apetrov/assetgate/internal/server/uploads"
)

const sweepInterval = time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	httpSrv *httpapi.Server
	uploads *uploads.Manager
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	conn, err := db.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.RunMigrations(context.Background(), conn); err != nil {
		return nil, err
	}

	cat, err := catalog.New(c.TierPatterns)
	if err != nil {
		return nil, fmt.Errorf("catalog init error: %w", err)
	}

	sgn := signer.NewS3Signer(signer.S3Options{
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		TTLCeiling:   c.CredentialTTLCeiling,
		SignTimeout:  c.SignTimeout,
	})

	lister := storage.NewS3Lister(storage.S3Options{
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		ListTimeout:  c.ListTimeout,
	})

	us := services.NewUserService(conn, c.SecretKey, c.AccessTokenValidityDuration, logger)
	fs := services.NewFileService(sgn, lister, cat, c.DownloadCredentialTTL, c.MintConcurrency, logger)

	um := uploads.NewManager(sgn, lister, uploads.Options{
		MaxUploadBytes:      c.MaxUploadBytes,
		AllowedContentTypes: c.AllowedContentTypes,
		CredentialTTL:       c.UploadCredentialTTL,
		PublicBaseURL:       c.PublicBaseURL,
		KeyPrefix:           c.UploadKeyPrefix,
	}, logger)

	httpSrv := httpapi.NewServer(c.EndpointAddrHTTP, logger, us, fs, um, c.SecretKey)

	return &App{config: c, logger: logger, httpSrv: httpSrv, uploads: um}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpSrv.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runSweeper periodically drops abandoned upload sessions whose credentials
// expired.
func (app *App) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := app.uploads.Sweep(now); n > 0 {
				app.logger.Info(ctx, "swept expired upload sessions", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runSweeper(ctx)
	}()

	wg.Wait()
}
