package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/TobiSchelling/catalog/internal/articles"
	"github.com/TobiSchelling/catalog/internal/cache"
	"github.com/TobiSchelling/catalog/internal/catalog"
	"github.com/TobiSchelling/catalog/internal/config"
	"github.com/TobiSchelling/catalog/internal/database"
	"github.com/TobiSchelling/catalog/internal/postgres"
	"github.com/TobiSchelling/catalog/internal/postgrest"
	"github.com/TobiSchelling/catalog/internal/render"
)

// app holds the wired dependencies of one command run.
type app struct {
	store   articles.Store
	svc     *catalog.Service
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("closing resource", zap.Error(err))
		}
	}
}

func openApp(ctx context.Context) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var db *database.DB
	openDB := func() (*database.DB, error) {
		if db != nil {
			return db, nil
		}
		var err error
		db, err = database.Open(cfg.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("opening local database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return db, nil
	}

	store, err := openStore(ctx, a, openDB)
	if err != nil {
		return nil, err
	}
	a.store = store

	c, err := openCache(ctx, a, openDB)
	if err != nil {
		return nil, err
	}

	var renderOpts []render.Option
	if cfg.Render.MarkdownDescriptions {
		renderOpts = append(renderOpts, render.WithMarkdownDescriptions())
	}
	r, err := render.New(renderOpts...)
	if err != nil {
		return nil, err
	}

	a.svc = catalog.New(store, c, r,
		catalog.WithLogger(logger),
		catalog.WithSlot(cfg.Cache.Slot),
	)
	ok = true
	return a, nil
}

func openStore(ctx context.Context, a *app, openDB func() (*database.DB, error)) (articles.Store, error) {
	sc := cfg.Store
	switch sc.Backend {
	case config.BackendPostgREST:
		client := postgrest.New(sc.StoreURL(), sc.StoreKey(),
			postgrest.WithTable(sc.Table),
			postgrest.WithSearchColumn(sc.SearchColumn),
			postgrest.WithHTTPClient(&http.Client{Timeout: sc.Timeout}),
		)
		if !client.IsConfigured() {
			return nil, fmt.Errorf("store not configured: set %s and %s", sc.URLEnv, sc.KeyEnv)
		}
		logger.Debug("using postgrest store", zap.String("table", sc.Table))
		return client, nil

	case config.BackendPostgres:
		dsn := sc.DSN()
		if dsn == "" {
			return nil, fmt.Errorf("store not configured: set %s", sc.DSNEnv)
		}
		s, err := postgres.Open(ctx, dsn, sc.Table, sc.SearchColumn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		logger.Debug("using postgres store", zap.String("table", sc.Table))
		return s, nil

	case config.BackendSQLite:
		db, err := openDB()
		if err != nil {
			return nil, err
		}
		logger.Debug("using sqlite store", zap.String("path", db.Path()))
		return db.ArticleStore(), nil
	}
	return nil, errors.New("unknown store backend " + sc.Backend)
}

func openCache(ctx context.Context, a *app, openDB func() (*database.DB, error)) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.CacheSQLite:
		db, err := openDB()
		if err != nil {
			return nil, err
		}
		return cache.NewSQLite(db), nil

	case config.CacheRedis:
		url := cfg.Cache.RedisURL()
		if url == "" {
			return nil, fmt.Errorf("cache not configured: set %s", cfg.Cache.RedisURLEnv)
		}
		r, err := cache.NewRedis(ctx, url)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		return r, nil
	}
	return cache.NewMemory(), nil
}

func newArticle(title, description, code string) articles.NewArticle {
	return articles.NewArticle{Title: title, Description: description, Code: code}
}
