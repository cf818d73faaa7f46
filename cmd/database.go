package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/frahmantamala/voucher-store/internal"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const dbDriver = "pgx"

// Database shares one pool between gorm repositories, sqlx queries and goose.
type Database struct {
	SQL  *sql.DB
	Gorm *gorm.DB
	SQLX *sqlx.DB
}

func (d *Database) Close() error {
	return d.SQL.Close()
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*Database, error) {
	sqlDB, err := sql.Open(dbDriver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	return &Database{
		SQL:  sqlDB,
		Gorm: gormDB,
		SQLX: sqlx.NewDb(sqlDB, dbDriver),
	}, nil
}
