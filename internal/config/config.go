package config

import (
	"encoding/json"
	"flag"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string `json:"port"`
	DBURL       string `json:"dbUrl"` // empty = in-memory transport
	DBMaxConns  int    `json:"dbMaxConns"`
	AutoMigrate bool   `json:"autoMigrate"`
	CatalogsDir string `json:"catalogsDir"`

	// data-access layer
	StaleTimeMs    int    `json:"staleTimeMs"`
	GCTimeMs       int    `json:"gcTimeMs"`
	RetryMax       int    `json:"retryMax"`
	RetryBackoffMs int    `json:"retryBackoffMs"`
	ConflictPolicy string `json:"conflictPolicy"` // "last-write-wins" | "reject-on-conflict"
}

func def() Config {
	return Config{
		Port:        "8080",
		DBURL:       "",
		DBMaxConns:  10,
		AutoMigrate: false,
		CatalogsDir: "reference/catalogs",

		StaleTimeMs:    30_000,
		GCTimeMs:       300_000,
		RetryMax:       3,
		RetryBackoffMs: 200,
		ConflictPolicy: "last-write-wins",
	}
}

func loadJSON(path string) (Config, error) {
	c := def()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "1" || v == "true" || v == "yes" {
			return true
		}
		if v == "0" || v == "false" || v == "no" {
			return false
		}
	}
	return fallback
}

func getenvInt(k string, fallback int) int {
	if v, ok := os.LookupEnv(k); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// LoadWithPath reads JSON at the given path, then applies ENV and flags.
func LoadWithPath(jsonPath string) Config {
	return load(jsonPath, os.Args[1:])
}

// load keeps the flag definitions on a fresh FlagSet per call: the -config
// reread re-enters here, and redefining names on the global set would panic.
func load(jsonPath string, args []string) Config {
	cfg := def()

	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		if c2, err := loadJSON(jsonPath); err == nil {
			cfg = c2
		}
	}

	// ENV overrides
	cfg.Port = getenv("FACET_PORT", cfg.Port)
	cfg.DBURL = getenv("FACET_DB_URL", cfg.DBURL)
	cfg.DBMaxConns = getenvInt("FACET_DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.AutoMigrate = getenvBool("FACET_AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.CatalogsDir = getenv("FACET_CATALOGS_DIR", cfg.CatalogsDir)
	cfg.StaleTimeMs = getenvInt("FACET_STALE_TIME_MS", cfg.StaleTimeMs)
	cfg.GCTimeMs = getenvInt("FACET_GC_TIME_MS", cfg.GCTimeMs)
	cfg.RetryMax = getenvInt("FACET_RETRY_MAX", cfg.RetryMax)
	cfg.RetryBackoffMs = getenvInt("FACET_RETRY_BACKOFF_MS", cfg.RetryBackoffMs)
	cfg.ConflictPolicy = getenv("FACET_CONFLICT_POLICY", cfg.ConflictPolicy)

	// Flags overrides
	fs := flag.NewFlagSet("facet", flag.ExitOnError)
	configPath := fs.String("config", jsonPath, "Path to config JSON")
	port := fs.String("port", cfg.Port, "HTTP port")
	db := fs.String("db", cfg.DBURL, "Postgres URL (empty = in-memory)")
	dbConns := fs.Int("db-max-conns", cfg.DBMaxConns, "Postgres pool size")
	auto := fs.Bool("auto-migrate", cfg.AutoMigrate, "Apply add-only DDL on start")
	catalogs := fs.String("catalogs", cfg.CatalogsDir, "Path to option catalogs directory")
	stale := fs.Int("stale-ms", cfg.StaleTimeMs, "List cache fresh window (ms)")
	gc := fs.Int("gc-ms", cfg.GCTimeMs, "Cache eviction window (ms)")
	retries := fs.Int("retry-max", cfg.RetryMax, "List fetch retry limit")
	backoff := fs.Int("retry-backoff-ms", cfg.RetryBackoffMs, "Retry backoff base (ms)")
	conflict := fs.String("conflict", cfg.ConflictPolicy, "Mutation overlap policy (last-write-wins/reject-on-conflict)")

	_ = fs.Parse(args)

	// different config passed via flag: reread
	if *configPath != jsonPath {
		return load(*configPath, args)
	}

	cfg.Port = strings.TrimSpace(*port)
	cfg.DBURL = strings.TrimSpace(*db)
	cfg.DBMaxConns = *dbConns
	cfg.AutoMigrate = *auto
	cfg.CatalogsDir = strings.TrimSpace(*catalogs)
	cfg.StaleTimeMs = *stale
	cfg.GCTimeMs = *gc
	cfg.RetryMax = *retries
	cfg.RetryBackoffMs = *backoff
	cfg.ConflictPolicy = strings.TrimSpace(*conflict)

	return cfg
}
