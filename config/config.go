// Package config loads node-local settings. Consensus parameters are
// not configured here; they come from genesis.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/blockberries/airdrop/logging"
	"github.com/blockberries/airdrop/store"
)

// EnvPrefix is prepended to every environment override, e.g.
// AIRDROP_GRPC_ADDR.
const EnvPrefix = "AIRDROP"

// Keys understood by Load.
const (
	KeyHome        = "home"
	KeyGenesis     = "genesis"
	KeyGRPCAddr    = "grpc.addr"
	KeyMetricsAddr = "metrics.addr"
	KeyLogLevel    = "log.level"
	KeyLogFormat   = "log.format"
	KeyLogFile     = "log.file"
	KeyDBCache     = "db.cache"
	KeyDBHandles   = "db.handles"
	KeyDBSync      = "db.sync"
	KeyMaxAmount   = "mempool.max_amount"
)

// Config is the resolved node configuration.
type Config struct {
	Home string
	// GenesisFile is where `genesis --write` puts the app-state. The
	// node never reads it: the host passes genesis in the handshake.
	GenesisFile string
	GRPCAddr    string
	// Empty disables the metrics endpoint.
	MetricsAddr string
	Log         logging.Config
	DB          store.Options
	// MaxAmount rejects larger airdrop requests at mempool admission.
	// 0 = only the genesis limit applies.
	MaxAmount uint64
}

// DataDir is where the state database lives.
func (c Config) DataDir() string { return filepath.Join(c.Home, "data") }

// SetDefaults installs default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHome, ".airdropd")
	v.SetDefault(KeyGenesis, "")
	v.SetDefault(KeyGRPCAddr, "127.0.0.1:26658")
	v.SetDefault(KeyMetricsAddr, "127.0.0.1:26660")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyDBCache, 16)
	v.SetDefault(KeyDBHandles, 64)
	v.SetDefault(KeyDBSync, true)
	v.SetDefault(KeyMaxAmount, 0)
}

// Load resolves the configuration from v. Values come, in order of
// precedence, from bound flags, AIRDROP_* environment variables,
// <home>/config.toml and defaults.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	home := v.GetString(KeyHome)
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(home)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	c := Config{
		Home:        home,
		GenesisFile: v.GetString(KeyGenesis),
		GRPCAddr:    v.GetString(KeyGRPCAddr),
		MetricsAddr: v.GetString(KeyMetricsAddr),
		Log: logging.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			Path:   v.GetString(KeyLogFile),
		},
		DB: store.Options{
			CacheMiB: v.GetInt(KeyDBCache),
			Handles:  v.GetInt(KeyDBHandles),
			Sync:     v.GetBool(KeyDBSync),
		},
		MaxAmount: v.GetUint64(KeyMaxAmount),
	}
	if c.GenesisFile == "" {
		c.GenesisFile = filepath.Join(home, "genesis.json")
	}
	if c.GRPCAddr == "" {
		return Config{}, errors.New("config: grpc.addr must be set")
	}
	return c, nil
}
