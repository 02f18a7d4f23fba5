package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/catalog"
	"github.com/petermazzocco/go-catalog-api/internal/events"
	"github.com/petermazzocco/go-catalog-api/internal/handlers"
	"github.com/petermazzocco/go-catalog-api/internal/server"
	"github.com/petermazzocco/go-catalog-api/internal/storage"
	"github.com/petermazzocco/go-catalog-api/internal/storage/imaging"
	"github.com/petermazzocco/go-catalog-api/internal/store"
)

const (
	dbRetryInterval = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func runServe(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := publisher(a)
	defer pub.Close()
	svc := a.service(pub)

	// The listener starts even when the database is down so /health can
	// report it; schema setup is retried in the background.
	if err := prepareDatabase(ctx, a, svc); err != nil {
		log.Error("database unavailable at startup, serving degraded", zap.Error(err))
		go retryPrepare(ctx, a, svc)
	}

	images, uploadDir, err := imageStore(ctx, a)
	if err != nil {
		return err
	}

	h := handlers.New(handlers.Deps{
		Service:    svc,
		Images:     images,
		Inspector:  imaging.Bimg{},
		Ping:       func(ctx context.Context) error { return store.Ping(ctx, a.db) },
		Logger:     log,
		Production: a.cfg.IsProduction(),
		Version:    a.cfg.APIVersion,
	})
	router := server.NewRouter(h, a.tokens, log, server.Options{
		Version:   a.cfg.APIVersion,
		Origins:   a.cfg.Origins(),
		UploadDir: uploadDir,
		General:   server.Limit{Requests: a.cfg.RateGeneral, Window: a.cfg.RateGeneralWindow},
		Login:     server.Limit{Requests: a.cfg.RateLogin, Window: a.cfg.RateLoginWindow},
		Contact:   server.Limit{Requests: a.cfg.RateContact, Window: a.cfg.RateContactWindow},
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server",
			zap.String("addr", srv.Addr),
			zap.String("env", a.cfg.Env),
			zap.String("base_path", "/api/"+a.cfg.APIVersion),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("listener failed", zap.Error(err))
			log.Sync()
			time.Sleep(time.Second)
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
	return nil
}

// prepareDatabase migrates the schema and creates the seed owner.
func prepareDatabase(ctx context.Context, a *app, svc *catalog.Service) error {
	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.DBConnectTimeout)
	defer cancel()
	if err := store.Ping(pingCtx, a.db); err != nil {
		return err
	}
	if err := store.Migrate(a.db.WithContext(ctx)); err != nil {
		return err
	}
	_, err := svc.Bootstrap(ctx, a.seed())
	return err
}

func retryPrepare(ctx context.Context, a *app, svc *catalog.Service) {
	t := time.NewTicker(dbRetryInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := prepareDatabase(ctx, a, svc); err != nil {
				a.log.Debug("database still unavailable", zap.Error(err))
				continue
			}
			a.log.Info("database connected, schema ready")
			return
		}
	}
}

func publisher(a *app) events.Publisher {
	if a.cfg.AMQPURL == "" {
		return events.Nop{}
	}
	p, err := events.NewAMQP(a.cfg.AMQPURL, a.cfg.AMQPExchange)
	if err != nil {
		a.log.Warn("event broker unavailable, events disabled", zap.Error(err))
		return events.Nop{}
	}
	return p
}

// imageStore picks R2 when a bucket is configured and the local uploads
// directory otherwise. The returned dir is empty for R2.
func imageStore(ctx context.Context, a *app) (storage.ImageStore, string, error) {
	if a.cfg.BucketName != "" {
		r2, err := storage.NewR2(ctx, storage.R2Options{
			AccountID:       a.cfg.AccountID,
			AccessKeyID:     a.cfg.AccessKeyID,
			AccessKeySecret: a.cfg.AccessKeySecret,
			Bucket:          a.cfg.BucketName,
			PublicURL:       a.cfg.PublicURL,
		})
		return r2, "", err
	}
	disk, err := storage.NewDisk(a.cfg.UploadDir, a.cfg.BaseURL())
	if err != nil {
		return nil, "", err
	}
	return disk, disk.Dir(), nil
}
