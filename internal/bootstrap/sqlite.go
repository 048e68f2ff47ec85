package bootstrap

import (
	"database/sql"

	"github.com/aprendu/aprendu-backend/internal/store/sqlite"
)

func InitSQLite(path string) (*sql.DB, error) {
	return sqlite.Open(path)
}
