package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Env != EnvLocal {
		t.Errorf("Expected Env to be local, got %s", cfg.Env)
	}

	if cfg.Server.Name != "sqlite-demo" {
		t.Errorf("Expected server name sqlite-demo, got %s", cfg.Server.Name)
	}

	if cfg.Server.ServerType != TransportSSE {
		t.Errorf("Expected default server type sse, got %s", cfg.Server.ServerType)
	}

	if cfg.Addr() != "127.0.0.1:8000" {
		t.Errorf("Expected address 127.0.0.1:8000, got %s", cfg.Addr())
	}

	if cfg.SSEURL() != "http://127.0.0.1:8000/sse" {
		t.Errorf("Expected SSE URL http://127.0.0.1:8000/sse, got %s", cfg.SSEURL())
	}

	cwd, _ := os.Getwd()
	if cfg.DBPath() != filepath.Join(cwd, "data", "demo.db") {
		t.Errorf("Expected DB path under ./data, got %s", cfg.DBPath())
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected local log level debug, got %s", cfg.Log.Level)
	}
}

func TestDefaultConfigFor(t *testing.T) {
	tests := []struct {
		env       Environment
		wantHost  string
		wantLevel string
	}{
		{EnvLocal, "127.0.0.1", "debug"},
		{EnvDev, "127.0.0.1", "debug"},
		{EnvQA, "0.0.0.0", "info"},
		{EnvStage, "0.0.0.0", "info"},
		{EnvPreProd, "0.0.0.0", "info"},
		{EnvProd, "0.0.0.0", "info"},
	}

	for _, tt := range tests {
		t.Run(string(tt.env), func(t *testing.T) {
			cfg := DefaultConfigFor(tt.env)
			if cfg.Server.Host != tt.wantHost {
				t.Errorf("Host = %s, want %s", cfg.Server.Host, tt.wantHost)
			}
			if cfg.Log.Level != tt.wantLevel {
				t.Errorf("Log level = %s, want %s", cfg.Log.Level, tt.wantLevel)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Default config for %s should be valid: %v", tt.env, err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"unknown env", func(c *Config) { c.Env = "sandbox" }, true},
		{"empty host", func(c *Config) { c.Server.Host = "" }, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"unknown server type", func(c *Config) { c.Server.ServerType = "websocket" }, true},
		{"stdio server type", func(c *Config) { c.Server.ServerType = TransportStdio }, false},
		{"empty data dir", func(c *Config) { c.Store.DataDir = "" }, true},
		{"empty file name", func(c *Config) { c.Store.FileName = " " }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"zero max days", func(c *Config) { c.Log.MaxDays = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqlitemcp-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	configTestDir := filepath.Join(tmpDir, "config")
	SetConfigDir(configTestDir)

	cfg := DefaultConfig()
	cfg.Server.Port = 9100
	cfg.Store.DataDir = filepath.Join(tmpDir, "data")

	if err := Save(cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	configPath := filepath.Join(configTestDir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file not created")
	}

	loadedCfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedCfg.Server.Port != 9100 {
		t.Errorf("Port mismatch: expected 9100, got %d", loadedCfg.Server.Port)
	}
	if loadedCfg.Store.DataDir != cfg.Store.DataDir {
		t.Errorf("DataDir mismatch: expected %s, got %s", cfg.Store.DataDir, loadedCfg.Store.DataDir)
	}
}

func TestLoad_CreatesDefaultFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqlitemcp-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	SetConfigDir(tmpDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.ServerType != TransportSSE {
		t.Errorf("Expected default server type sse, got %s", cfg.Server.ServerType)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "config.yaml"))
	if err != nil {
		t.Fatalf("Default config file not written: %v", err)
	}
	if !strings.Contains(string(data), "server_type: sse") {
		t.Errorf("Default config file should contain server_type, got:\n%s", data)
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqlitemcp-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	SetConfigDir(tmpDir)

	content := `env = "qa"

[server]
port = 8123
server_type = "stdio"

[store]
file_name = "people.db"
`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Env != EnvQA {
		t.Errorf("Expected env qa, got %s", cfg.Env)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected qa default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("Expected port 8123, got %d", cfg.Server.Port)
	}
	if cfg.Server.ServerType != TransportStdio {
		t.Errorf("Expected server type stdio, got %s", cfg.Server.ServerType)
	}
	if cfg.Store.FileName != "people.db" {
		t.Errorf("Expected file name people.db, got %s", cfg.Store.FileName)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "config.yaml")); !os.IsNotExist(err) {
		t.Error("config.yaml should not be created when config.toml exists")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqlitemcp-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	SetConfigDir(tmpDir)

	t.Setenv(EnvVarEnv, "prod")
	t.Setenv(EnvVarPort, "9000")
	t.Setenv(EnvVarServerType, "STDIO")
	t.Setenv(EnvVarDataDir, filepath.Join(tmpDir, "db"))
	t.Setenv(EnvVarUsername, "ops")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Env != EnvProd {
		t.Errorf("Expected env prod, got %s", cfg.Env)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected prod host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.ServerType != TransportStdio {
		t.Errorf("Expected server type stdio, got %s", cfg.Server.ServerType)
	}
	if cfg.Store.DataDir != filepath.Join(tmpDir, "db") {
		t.Errorf("Expected data dir override, got %s", cfg.Store.DataDir)
	}
	if cfg.Log.Username != "ops" {
		t.Errorf("Expected username ops, got %s", cfg.Log.Username)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqlitemcp-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	SetConfigDir(tmpDir)

	t.Setenv(EnvVarPort, "eighty")
	if _, err := Load(); err == nil {
		t.Error("Non-numeric port should fail to load")
	}
}

func TestTransportFlagValue(t *testing.T) {
	var tr Transport
	if err := tr.Set("stdio"); err != nil {
		t.Fatalf("Set(stdio) failed: %v", err)
	}
	if tr.String() != "stdio" {
		t.Errorf("Expected stdio, got %s", tr.String())
	}
	if err := tr.Set("grpc"); err == nil {
		t.Error("Set(grpc) should fail")
	}
	if tr != TransportStdio {
		t.Errorf("Failed Set should leave value unchanged, got %s", tr)
	}
}

func TestParseEnvironment(t *testing.T) {
	for _, env := range Environments {
		got, err := ParseEnvironment(strings.ToUpper(string(env)))
		if err != nil {
			t.Errorf("ParseEnvironment(%s) failed: %v", env, err)
		}
		if got != env {
			t.Errorf("ParseEnvironment(%s) = %s", env, got)
		}
	}
	if _, err := ParseEnvironment("govcloud"); err == nil {
		t.Error("Unknown environment should fail")
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()
	for _, want := range []string{"sqlite-demo", "sse", "demo.db", "/sse"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() should contain %q, got:\n%s", want, s)
		}
	}
}

func TestBaseURL_PublicURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.PublicURL = "https://mcp.example.com/"
	if cfg.SSEURL() != "https://mcp.example.com/sse" {
		t.Errorf("Expected public SSE URL, got %s", cfg.SSEURL())
	}
}

func TestLoad_FileEnvSelectsDefaults(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqlitemcp-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	SetConfigDir(tmpDir)

	content := "env: prod\nserver:\n  port: 8200\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Env != EnvProd {
		t.Errorf("Expected env prod, got %s", cfg.Env)
	}
	if cfg.Server.Port != 8200 {
		t.Errorf("Expected port from file 8200, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected prod host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected prod log level info, got %s", cfg.Log.Level)
	}
	if cfg.Log.MaxDays != 30 {
		t.Errorf("Expected prod max days 30, got %d", cfg.Log.MaxDays)
	}
}

func TestLoad_EnvVarBeatsFileEnv(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqlitemcp-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	SetConfigDir(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("env: prod\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvVarEnv, "dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Env != EnvDev {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.Server.Host != DefaultHost || cfg.Log.Level != "debug" {
		t.Errorf("Expected dev defaults, got host=%s level=%s", cfg.Server.Host, cfg.Log.Level)
	}
}

func TestLoad_RelativeDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "sqlitemcp-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	SetConfigDir(tmpDir)
	cwd, _ := os.Getwd()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Store.DataDir != filepath.Join(cwd, "data") {
		t.Errorf("Expected data dir under the working directory, got %s", cfg.Store.DataDir)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "data_dir: data\n") {
		t.Errorf("Default config file should keep data_dir relative, got:\n%s", data)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("store:\n  data_dir: people\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DBPath() != filepath.Join(cwd, "people", "demo.db") {
		t.Errorf("Expected DB path under ./people, got %s", cfg.DBPath())
	}
}
