package main

import (
	"context"
	"fmt"
	"log"

	"lendit-admin/internal/platform/config"
	"lendit-admin/internal/platform/db"
	"lendit-admin/internal/platform/session"
)

// openStorage: 設定の driver に応じてセッションの保存先を開く
func openStorage(ctx context.Context, cfg *config.Config) (session.Storage, func(), error) {
	nop := func() {}
	if cfg.Session.Driver == config.DriverMemory {
		return session.NewMemoryStorage(), nop, nil
	}

	sealer, err := session.NewSealer(cfg.Session.Secret)
	if err != nil {
		return nil, nop, err
	}

	switch cfg.Session.Driver {
	case config.DriverMySQL:
		conn, err := db.Connect(cfg.DB)
		if err != nil {
			return nil, nop, err
		}
		st, err := session.NewSQLStorage(ctx, conn, sealer)
		if err != nil {
			conn.Close()
			return nil, nop, err
		}
		log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)
		return st, func() { conn.Close() }, nil

	case config.DriverSQLite:
		conn, err := db.OpenSQLite(cfg.Session.DSN)
		if err != nil {
			return nil, nop, err
		}
		st, err := session.NewSQLStorage(ctx, conn, sealer)
		if err != nil {
			conn.Close()
			return nil, nop, err
		}
		return st, func() { conn.Close() }, nil

	case config.DriverPostgres:
		pool, err := db.ConnectPG(ctx, cfg.Session.DSN)
		if err != nil {
			return nil, nop, err
		}
		st, err := session.NewPGStorage(ctx, pool, sealer)
		if err != nil {
			pool.Close()
			return nil, nop, err
		}
		return st, pool.Close, nil
	}
	return nil, nop, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
}
