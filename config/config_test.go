package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{
		"ROBOFLOW_API_KEY":     "key",
		"ROBOFLOW_WORKSPACE":   "eco",
		"ROBOFLOW_WORKFLOW_ID": "wf",
	})

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8000", cfg.HTTPAddr)
	require.Equal(t, BackendRoboflow, cfg.AIBackend)
	require.Equal(t, "https://serverless.roboflow.com", cfg.Roboflow.APIURL)
	require.Equal(t, 30*time.Second, cfg.Roboflow.Timeout)
	require.Equal(t, 45*time.Second, cfg.ClassifyTimeout)
	require.Equal(t, "sqlite", cfg.DB.Driver)
	require.True(t, cfg.DB.Migrate)
	require.Equal(t, ActuationMemory, cfg.ActuationStore)
	require.Equal(t, 224, cfg.Local.InputSize)
}

func TestLoad_Local(t *testing.T) {
	setEnv(t, map[string]string{
		"AI_BACKEND":        "LOCAL",
		"LOCAL_CLASS_NAMES": "organico, reciclable,,inorganico",
		"CLASSIFY_TIMEOUT":  "10s",
		"DB_MIGRATE":        "false",
	})

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendLocal, cfg.AIBackend)
	require.Equal(t, []string{"organico", "reciclable", "inorganico"}, cfg.Local.ClassNames)
	require.Equal(t, 10*time.Second, cfg.ClassifyTimeout)
	require.False(t, cfg.DB.Migrate)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AIBackend:       BackendRoboflow,
			Roboflow:        RoboflowConfig{APIKey: "k", ModelID: "p/1"},
			DB:              DBConfig{Driver: "sqlite"},
			ActuationStore:  ActuationMemory,
			ClassifyTimeout: time.Second,
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.AIBackend = "openai" }},
		{name: "no api key", mutate: func(c *Config) { c.Roboflow.APIKey = "" }},
		{name: "no workflow or model", mutate: func(c *Config) { c.Roboflow.ModelID = "" }},
		{name: "workflow without workspace", mutate: func(c *Config) { c.Roboflow.WorkflowID = "wf" }},
		{name: "unknown db driver", mutate: func(c *Config) { c.DB.Driver = "mysql" }},
		{name: "unknown actuation store", mutate: func(c *Config) { c.ActuationStore = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			require.Error(t, c.Validate())
		})
	}
}
