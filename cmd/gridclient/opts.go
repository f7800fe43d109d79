package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maxpoletaev/gridclient/session"
)

const envPrefix = "GRIDCLIENT"

type options struct {
	Servers         []string      `mapstructure:"servers"`
	Routers         []string      `mapstructure:"routers"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
	CacheFlags      []string      `mapstructure:"cache_flags"`
	Verbose         bool          `mapstructure:"verbose"`
}

// flagKeys maps the config keys to the names of the persistent flags.
var flagKeys = map[string]string{
	"servers":          "servers",
	"routers":          "routers",
	"refresh_interval": "refresh-interval",
	"request_timeout":  "request-timeout",
	"pool_size":        "pool-size",
	"cache_flags":      "cache-flags",
	"verbose":          "verbose",
}

func addGlobalFlags(cmd *cobra.Command) {
	defaults := session.DefaultConfig()
	flags := cmd.PersistentFlags()

	flags.String("config", "", "path to a TOML or YAML config file")
	flags.StringSlice("servers", nil, "comma-separated list of grid node addresses")
	flags.StringSlice("routers", nil, "comma-separated list of grid router addresses")
	flags.Duration("refresh-interval", defaults.RefreshInterval, "topology refresh interval")
	flags.Duration("request-timeout", defaults.RequestTimeout, "topology request timeout per address")
	flags.Int("pool-size", defaults.PoolSize, "number of worker pool goroutines")
	flags.StringSlice("cache-flags", nil, "default cache flags")
	flags.Bool("verbose", false, "enable debug logging")
}

// loadOptions merges the flags, the GRIDCLIENT_* environment variables and the
// config file, in that order of precedence.
func loadOptions(cmd *cobra.Command) (*options, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, name := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = v.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	opts := &options{}
	if err := v.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	opts.Servers = parseAddrs(opts.Servers)
	opts.Routers = parseAddrs(opts.Routers)

	return opts, nil
}

// parseAddrs splits comma-separated entries and drops the empty ones.
func parseAddrs(values []string) []string {
	var res []string

	for _, value := range values {
		for _, addr := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(addr); trimmed != "" {
				res = append(res, trimmed)
			}
		}
	}

	return res
}
