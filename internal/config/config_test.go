// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromCommandDefaults(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	AddFlags(cmd)

	cfg, err := FromCommand(cmd)
	require.NoError(t, err)

	assert.Equal(t, "sqlite3://webhookd.db", cfg.DSN)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 10, cfg.WorkerCount)
	assert.Equal(t, ":8080", cfg.ListenAddress)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "all", cfg.StatsPeriod)
}

func TestFromCommandExplicitFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	AddFlags(cmd)
	require.NoError(t, cmd.Flags().Set("worker-count", "25"))

	cfg, err := FromCommand(cmd)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.WorkerCount)
}

func TestPopulateEnvDoesNotOverrideExplicitFlag(t *testing.T) {
	t.Setenv("WEBHOOKD_WORKER_COUNT", "99")

	cmd := &cobra.Command{Use: "test"}
	AddFlags(cmd)
	require.NoError(t, cmd.Flags().Set("worker-count", "5"))

	PopulateEnv(cmd)

	cfg, err := FromCommand(cmd)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.WorkerCount)
}

func TestPopulateEnvSetsUnchangedFlag(t *testing.T) {
	t.Setenv("WEBHOOKD_LISTEN_ADDRESS", ":9090")

	cmd := &cobra.Command{Use: "test"}
	AddFlags(cmd)

	PopulateEnv(cmd)

	cfg, err := FromCommand(cmd)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddress)
}
