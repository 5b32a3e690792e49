package database

import (
	"database/sql"
	"sync"

	"github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"
)

// DriverName is the database/sql driver registered by this package.
const DriverName = "sqlite3_notebook"

// RankFunctionName is the SQL function that scores full-text matches.
const RankFunctionName = "fts_rank"

var (
	registerOnce sync.Once
	registerErr  error
)

func registerDriver() error {
	registerOnce.Do(func() {
		defer func() {
			if rec := recover(); rec != nil {
				registerErr = eris.Errorf("registering sqlite driver: %v", rec)
			}
		}()

		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if err := conn.RegisterFunc(RankFunctionName, Rank, true); err != nil {
					return eris.Wrapf(err, "registering %s function", RankFunctionName)
				}
				return nil
			},
		})
	})

	return registerErr
}
