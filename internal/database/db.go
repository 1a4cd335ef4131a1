package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/park-passes/internal/config"
)

// DSN builds a go-sql-driver/mysql data source name.  parseTime maps
// DATE/DATETIME columns to time.Time and loc=UTC keeps them consistent.
func DSN(c config.DatabaseConfig, multiStatements bool) string {
	auth := c.User
	if c.Pass != "" {
		auth = fmt.Sprintf("%s:%s", c.User, c.Pass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.Host, c.Port, c.Name)
	if multiStatements {
		dsn += "&multiStatements=true"
	}
	return dsn
}

// Open connects to MySQL and verifies the connection.
func Open(c config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(c, false))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
