package common

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/go-sql-driver/mysql"
)

// DBOptions describes a MySQL connection and its pool.
type DBOptions struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string

	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	PingMaxWaitSec     int
}

// DSN returns the driver data source name. Timestamps are parsed into
// time.Time in UTC.
func (o DBOptions) DSN() string {
	c := mysql.NewConfig()
	c.User = o.User
	c.Passwd = o.Password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%s", o.Host, o.Port)
	c.DBName = o.Name
	c.ParseTime = true
	c.Loc = time.UTC
	return c.FormatDSN()
}

// DBConnect opens the pool and waits until the server answers a ping,
// backing off up to 30s between attempts.
func DBConnect(o DBOptions) (*sql.DB, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		log.Errorf("Failed to connect to the database: %v", err)
		return nil, err
	}

	if o.MaxOpenConns > 0 {
		db.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		db.SetMaxIdleConns(o.MaxIdleConns)
	}
	if o.ConnMaxLifetimeMin > 0 {
		db.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	}

	deadline := time.Now().Add(time.Duration(o.PingMaxWaitSec) * time.Second)
	waitInterval := time.Second
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		pingErr := db.PingContext(ctx)
		cancel()
		if pingErr == nil {
			break
		}
		if time.Now().After(deadline) {
			db.Close()
			return nil, fmt.Errorf("database ping timeout after %ds: %w", o.PingMaxWaitSec, pingErr)
		}
		log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, pingErr)
		time.Sleep(waitInterval)
		waitInterval *= 2
		if waitInterval > 30*time.Second {
			waitInterval = 30 * time.Second
		}
	}

	log.Infof("Established db connection pool: open=%d idle=%d max_lifetime_min=%d", o.MaxOpenConns, o.MaxIdleConns, o.ConnMaxLifetimeMin)
	return db, nil
}
