package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"cloud.google.com/go/firestore"
	gcpkms "cloud.google.com/go/kms/apiv1"
	"firebase.google.com/go/v4/auth"

	"github.com/aprendu/aprendu-backend/internal/config"
	"github.com/aprendu/aprendu-backend/pkg/logger"
)

type Bootstrap struct {
	Log       *slog.Logger
	Firestore *firestore.Client
	SQLite    *sql.DB
	Firebase  *auth.Client
	KMS       *gcpkms.KeyManagementClient
	LLM       LLMClient

	closers []func() error
}

func Run(cfg *config.Config) (*Bootstrap, error) {
	var err error
	applicationCtx := context.Background()
	bs := new(Bootstrap)

	handler := logger.NewCloudRunHandler
	if cfg.LogFormat == "text" {
		handler = logger.NewTextHandler
	}
	bs.Log = logger.New(cfg.LogLevel, handler)

	switch cfg.StoreBackend {
	case config.StoreSQLite:
		bs.SQLite, err = InitSQLite(cfg.SQLitePath)
		if err != nil {
			return bs, err
		}
		bs.onClose(bs.SQLite.Close)
	default:
		bs.Firestore, err = InitFirestore(applicationCtx, cfg.ProjectID)
		if err != nil {
			return bs, err
		}
		bs.onClose(bs.Firestore.Close)
	}

	if cfg.AuthMode == config.AuthFirebase {
		bs.Firebase, err = InitFirebase(applicationCtx, cfg.ProjectID)
		if err != nil {
			return bs, err
		}
	}

	if cfg.KMSKeyName != "" {
		bs.KMS, err = InitKMS(applicationCtx)
		if err != nil {
			return bs, err
		}
		bs.onClose(bs.KMS.Close)
	}

	bs.LLM, err = InitLLM(applicationCtx, bs.Log, cfg, bs.onClose)
	if err != nil {
		return bs, err
	}

	bs.Log.Info("bootstrap complete",
		"store", cfg.StoreBackend,
		"auth", cfg.AuthMode,
		"llm", cfg.LLMProvider,
		"kms", cfg.KMSKeyName != "",
	)
	return bs, nil
}

func (b *Bootstrap) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Close releases clients in reverse order of creation.
func (b *Bootstrap) Close() error {
	var errList []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errList = append(errList, err)
		}
	}
	b.closers = nil
	return errors.Join(errList...)
}
