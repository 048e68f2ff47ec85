package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aprendu/aprendu-backend/internal/bootstrap"
	"github.com/aprendu/aprendu-backend/internal/config"
	"github.com/aprendu/aprendu-backend/internal/crypto"
	"github.com/aprendu/aprendu-backend/internal/handlers"
	"github.com/aprendu/aprendu-backend/internal/middleware"
	"github.com/aprendu/aprendu-backend/internal/models"
	"github.com/aprendu/aprendu-backend/internal/response"
	"github.com/aprendu/aprendu-backend/internal/router"
	"github.com/aprendu/aprendu-backend/internal/services"
	"github.com/aprendu/aprendu-backend/internal/store"
	"github.com/aprendu/aprendu-backend/internal/store/sqlite"
	"github.com/aprendu/aprendu-backend/internal/validation"
)

const sweepInterval = 5 * time.Minute

type savedDashboardStore interface {
	Save(ctx context.Context, uid string, d *models.SavedDashboard) error
	Get(ctx context.Context, uid, id string) (*models.SavedDashboard, error)
	List(ctx context.Context, uid string) ([]*models.SavedDashboard, error)
	Delete(ctx context.Context, uid, id string) error
}

type chatStore interface {
	SaveMessage(ctx context.Context, uid, sessionID string, msg models.AIMessage) error
	ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.AIMessage, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// bootstrap
	cfg := config.New()
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	// helpers
	var cipher crypto.Cipher = crypto.NewPlain()
	if bs.KMS != nil {
		cipher = crypto.NewKMS(bs.KMS, cfg.KMSKeyName)
	}
	validator := validation.New()

	// stores
	var (
		dstore savedDashboardStore
		astore chatStore
	)
	if bs.SQLite != nil {
		dstore = sqlite.NewSavedDashboardStore(bs.SQLite)
		astore = sqlite.NewAIStore(bs.SQLite)
	} else {
		dstore = store.NewSavedDashboardStore(bs.Firestore)
		astore = store.NewAIStore(bs.Firestore)
	}

	// services
	dserv := services.NewDashboardService(dstore, cipher, validator, cfg.HistoryLimit, cfg.SessionTTL)
	aiserv := services.NewAIService(bs.LLM, astore, dserv, cfg.AITTL)

	// response handler
	rh := response.New(bs.Log)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Validator = validator
	deps.DashboardSvc = dserv
	deps.AISvc = aiserv

	// auth
	mw := middleware.NewMiddleware(bs.Firebase)
	auth := mw.FirebaseAuth
	if cfg.AuthMode == config.AuthDev {
		bs.Log.Warn("dev auth enabled, identity headers are trusted")
		auth = mw.DevAuth
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweep(ctx, bs.Log, dserv, astore)

	// router
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(deps, auth),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			bs.Log.Error("server shutdown failed", "error", err)
		}
	}()

	bs.Log.Info("server listening", "port", cfg.Port)
	err = srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	exitOnError("server start failed", err, bs.Log)
}

// sweep evicts idle sessions and expired chat turns until ctx is done.
func sweep(ctx context.Context, log *slog.Logger, dserv interface{ Sweep(time.Time) int }, astore chatStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := dserv.Sweep(now); n > 0 {
				log.Info("evicted idle sessions", "count", n)
			}
			purged, err := astore.PurgeExpired(ctx)
			if err != nil {
				log.Warn("chat purge failed", "error", err)
				continue
			}
			if purged > 0 {
				log.Info("purged expired chat messages", "count", purged)
			}
		}
	}
}
