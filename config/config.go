// Package config loads the settings that tie the CLI, the downloader,
// and the store together: which wiki to operate on, where its dump
// files live, and the store's pragma set. It generalizes the flat
// struct of Store-open options into something loadable from a file or
// environment variables, the way a complete repo always externalizes
// such constants instead of hard-coding them. The only CLI flag involved
// is --config, which picks the file; no flag overrides a single value.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sixdegrees/wikigraph/store"
)

// DB holds the engine pragmas applied on every Store.Open.
type DB struct {
	JournalMode     string `mapstructure:"journal_mode"`
	Synchronous     string `mapstructure:"synchronous"`
	CacheSize       int    `mapstructure:"cache_size"`
	LockingMode     string `mapstructure:"locking_mode"`
	TempStore       string `mapstructure:"temp_store"`
	CreateIfMissing bool   `mapstructure:"create_if_missing"`
}

// Config is the full set of settings a sixdegrees command may need.
type Config struct {
	Wiki    string `mapstructure:"wiki"`
	BaseURL string `mapstructure:"base_url"`
	DBPath  string `mapstructure:"db_path"`
	DB      DB     `mapstructure:"db"`
}

func defaults() Config {
	return Config{
		Wiki:    "enwiki",
		BaseURL: "https://dumps.wikimedia.org",
		DB: DB{
			JournalMode:     "OFF",
			Synchronous:     "OFF",
			CacheSize:       100000,
			LockingMode:     "EXCLUSIVE",
			TempStore:       "MEMORY",
			CreateIfMissing: true,
		},
	}
}

// Load reads sixdegrees.yaml from the current directory (if present),
// then layers environment variables prefixed SIXDEGREES_ on top (e.g.
// SIXDEGREES_WIKI, SIXDEGREES_DB_PATH). configPath, if non-empty,
// overrides the default file location.
func Load(configPath string) (Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetEnvPrefix("sixdegrees")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows, so bind each one.
	for _, key := range []string{
		"wiki", "base_url", "db_path",
		"db.journal_mode", "db.synchronous", "db.cache_size",
		"db.locking_mode", "db.temp_store", "db.create_if_missing",
	} {
		_ = v.BindEnv(key)
	}

	v.SetConfigName("sixdegrees")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config: reading config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshalling config: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = fmt.Sprintf("./%s-db.sqlite3", cfg.Wiki)
	}
	return cfg, nil
}

// StoreConfig converts a Config's DB section into a store.Config ready
// for store.Open.
func (c Config) StoreConfig() store.Config {
	return store.Config{
		Path:            c.DBPath,
		CreateIfMissing: c.DB.CreateIfMissing,
		JournalMode:     c.DB.JournalMode,
		Synchronous:     c.DB.Synchronous,
		CacheSize:       c.DB.CacheSize,
		LockingMode:     c.DB.LockingMode,
		TempStore:       c.DB.TempStore,
	}
}

// DumpFileName returns the conventional local filename for one of the
// three dump tables of this config's wiki, e.g. "enwiki-latest-page.sql.gz".
func (c Config) DumpFileName(table string) string {
	return fmt.Sprintf("%s-latest-%s.sql.gz", c.Wiki, table)
}

// DumpURL returns the remote URL for one of the three dump tables, per
// the convention <base-url>/<wikiname>-latest-<table>.sql.gz.
func (c Config) DumpURL(table string) string {
	return fmt.Sprintf("%s/%s-latest-%s.sql.gz", c.BaseURL, c.Wiki, table)
}
