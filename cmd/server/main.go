package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"facet/internal/api"
	"facet/internal/config"
	"facet/internal/data"
	"facet/internal/demo"
	"facet/internal/memstore"
	"facet/internal/pg"
	"facet/internal/reference"
	"facet/internal/schema"
)

func main() {
	cfg := config.LoadWithPath("facet.json")

	catalogs, err := reference.LoadCatalogs(cfg.CatalogsDir)
	if err != nil {
		log.Printf("catalogs: %v (continuing without)", err)
		catalogs = nil
	}
	fmt.Printf("loaded catalogs: %d\n", len(catalogs))

	cacheCfg := schema.CacheConfig{
		StaleTime: time.Duration(cfg.StaleTimeMs) * time.Millisecond,
		GCTime:    time.Duration(cfg.GCTimeMs) * time.Millisecond,
	}

	ctx := context.Background()

	var def *schema.Definition
	if cfg.DBURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		db, err := pg.Open(dialCtx, cfg.DBURL, cfg.DBMaxConns)
		cancel()
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		store := pg.NewStore(db)
		def, err = demo.Users(store, cacheCfg)
		if err != nil {
			log.Fatalf("define users: %v", err)
		}
		store.Bind(def)
		if cfg.AutoMigrate {
			if err := pg.Migrate(ctx, db, def); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
	} else {
		store := memstore.New()
		var err error
		def, err = demo.Users(store, cacheCfg)
		if err != nil {
			log.Fatalf("define users: %v", err)
		}
		if err := demo.Seed(ctx, store); err != nil {
			log.Fatalf("seed users: %v", err)
		}
	}

	cache := data.NewCache(def.Cache())
	defer cache.Close()

	access := data.NewAccess(def, cache, data.Options{
		RetryMax:     cfg.RetryMax,
		RetryBackoff: time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
		Conflict:     conflictPolicy(cfg.ConflictPolicy),
	})

	reg := api.NewRegistry(catalogs)
	reg.Register(def, access)

	addr := ":" + cfg.Port
	fmt.Printf("starting facet server on %s...\n", addr)
	if err := api.RunServer(addr, reg); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func conflictPolicy(s string) data.ConflictPolicy {
	if s == "reject-on-conflict" {
		return data.RejectOnConflict
	}
	return data.LastWriteWins
}
