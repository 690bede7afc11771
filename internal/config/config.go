// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package config binds the webhookd server's typed configuration to cobra
// flags and environment variables, the way cmd/cloud does it.
package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix environment variables are read under, e.g.
// WEBHOOKD_DSN for --dsn.
const EnvPrefix = "webhookd"

// Config is the typed, fully-resolved configuration for the webhookd
// server process. Per-subscription settings (retry attempts, timeout, rate
// limit, ...) are data and live on model.Subscription; they are never read
// from here.
type Config struct {
	DSN           string
	PollInterval  time.Duration
	WorkerCount   int
	ListenAddress string
	LogLevel      string
	BatchSize     int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	DrainDeadline time.Duration
	StatsPeriod   string
}

// AddFlags registers the server's persistent flags and their defaults on
// the given command.
func AddFlags(command *cobra.Command) {
	command.PersistentFlags().String("dsn", "sqlite3://webhookd.db", "The database DSN to connect to (sqlite3://path or postgres://...).")
	command.PersistentFlags().Duration("poll-interval", time.Second, "How often the scheduler polls for due Events.")
	command.PersistentFlags().Int("worker-count", 10, "The number of concurrent delivery workers.")
	command.PersistentFlags().String("listen-address", ":8080", "The address the operational HTTP surface listens on.")
	command.PersistentFlags().String("log-level", "info", "The level of logging to output (debug, info, warn, error).")
	command.PersistentFlags().Int("batch-size", 100, "The number of due Events fetched per scheduler tick.")
	command.PersistentFlags().Duration("base-delay", time.Second, "The base delay used in the exponential backoff computation.")
	command.PersistentFlags().Duration("max-delay", 5*time.Minute, "The delay ceiling used in the exponential backoff computation.")
	command.PersistentFlags().Duration("drain-deadline", 30*time.Second, "How long the scheduler waits for in-flight deliveries to finish on shutdown.")
	command.PersistentFlags().String("stats-period", "all", "The rolling period key delivery stats are aggregated under.")
}

// FromCommand reads the resolved flag values (after PopulateEnv has
// applied any environment overrides) into a Config.
func FromCommand(command *cobra.Command) (Config, error) {
	flags := command.Flags()

	dsn, err := flags.GetString("dsn")
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := flags.GetDuration("poll-interval")
	if err != nil {
		return Config{}, err
	}
	workerCount, err := flags.GetInt("worker-count")
	if err != nil {
		return Config{}, err
	}
	listenAddress, err := flags.GetString("listen-address")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	batchSize, err := flags.GetInt("batch-size")
	if err != nil {
		return Config{}, err
	}
	baseDelay, err := flags.GetDuration("base-delay")
	if err != nil {
		return Config{}, err
	}
	maxDelay, err := flags.GetDuration("max-delay")
	if err != nil {
		return Config{}, err
	}
	drainDeadline, err := flags.GetDuration("drain-deadline")
	if err != nil {
		return Config{}, err
	}
	statsPeriod, err := flags.GetString("stats-period")
	if err != nil {
		return Config{}, err
	}

	return Config{
		DSN:           dsn,
		PollInterval:  pollInterval,
		WorkerCount:   workerCount,
		ListenAddress: listenAddress,
		LogLevel:      logLevel,
		BatchSize:     batchSize,
		BaseDelay:     baseDelay,
		MaxDelay:      maxDelay,
		DrainDeadline: drainDeadline,
		StatsPeriod:   statsPeriod,
	}, nil
}

// PopulateEnv binds WEBHOOKD_-prefixed environment variables onto any flag
// that was not explicitly set on the command line.
func PopulateEnv(command *cobra.Command) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	command.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		if v.IsSet(f.Name) {
			_ = command.Flags().Set(f.Name, v.GetString(f.Name))
		}
	})
}
