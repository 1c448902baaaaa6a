package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	// configDir is the configuration directory path
	// Can be set via SetConfigDir before loading config
	configDir     string
	configDirInit bool
)

// SetConfigDir sets a custom configuration directory
// Must be called before any config loading functions
func SetConfigDir(dir string) {
	configDir = dir
	configDirInit = true
}

// GetConfigDir returns the configuration directory
// Priority: 1. Manually set via SetConfigDir, 2. ./config in current directory
func GetConfigDir() string {
	if !configDirInit {
		cwd, err := os.Getwd()
		if err == nil {
			configDir = filepath.Join(cwd, "config")
		}
		configDirInit = true
	}
	return configDir
}

// Environment variable names
const (
	EnvVarEnv        = "SQLITEMCP_ENV"
	EnvVarHost       = "SQLITEMCP_HOST"
	EnvVarPort       = "SQLITEMCP_PORT"
	EnvVarServerType = "SQLITEMCP_SERVER_TYPE"
	EnvVarDataDir    = "SQLITEMCP_DATA_DIR"
	EnvVarDBFile     = "SQLITEMCP_DB_FILE"
	EnvVarLogLevel   = "SQLITEMCP_LOG_LEVEL"
	EnvVarUsername   = "SQLITEMCP_USERNAME"
)

const (
	DefaultServerName = "sqlite-demo"
	DefaultHost       = "127.0.0.1"
	DefaultPort       = 8000
	DefaultDBFile     = "demo.db"
	// DefaultDataDir is resolved against the working directory at load time
	DefaultDataDir = "data"
)

// Config application configuration structure
type Config struct {
	Env    Environment  `yaml:"env" toml:"env"`
	Server ServerConfig `yaml:"server" toml:"server"`
	Store  StoreConfig  `yaml:"store" toml:"store"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// ServerConfig tool server configuration
type ServerConfig struct {
	Name       string    `yaml:"name" toml:"name"`
	Host       string    `yaml:"host" toml:"host"`
	Port       int       `yaml:"port" toml:"port"`
	ServerType Transport `yaml:"server_type" toml:"server_type"`
	// PublicURL is advertised to SSE clients for the message endpoint.
	// Empty means http://host:port.
	PublicURL              string `yaml:"public_url" toml:"public_url"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`
}

// StoreConfig database file location
type StoreConfig struct {
	DataDir  string `yaml:"data_dir" toml:"data_dir"`
	FileName string `yaml:"file_name" toml:"file_name"`
}

// LogConfig logging configuration
type LogConfig struct {
	Level    string `yaml:"level" toml:"level"`
	MaxDays  int    `yaml:"max_days" toml:"max_days"`
	Console  bool   `yaml:"console" toml:"console"`
	Username string `yaml:"username" toml:"username"`
}

// DefaultConfig returns the default configuration for the local environment
func DefaultConfig() *Config {
	return DefaultConfigFor(EnvLocal)
}

// DefaultConfigFor returns default configuration for env
func DefaultConfigFor(env Environment) *Config {
	cfg := &Config{
		Env: env,
		Server: ServerConfig{
			Name:                   DefaultServerName,
			Host:                   DefaultHost,
			Port:                   DefaultPort,
			ServerType:             TransportSSE,
			ShutdownTimeoutSeconds: 5,
		},
		Store: StoreConfig{
			DataDir:  DefaultDataDir,
			FileName: DefaultDBFile,
		},
		Log: LogConfig{
			Level:    "info",
			MaxDays:  7,
			Console:  true,
			Username: defaultUsername(),
		},
	}

	switch env {
	case EnvLocal, EnvDev:
		cfg.Log.Level = "debug"
	case EnvQA, EnvStage:
		cfg.Server.Host = "0.0.0.0"
	case EnvPreProd, EnvProd:
		cfg.Server.Host = "0.0.0.0"
		cfg.Log.MaxDays = 30
	}

	return cfg
}

func defaultUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "anonymous"
}

// ConfigDir returns the configuration directory path
func ConfigDir() (string, error) {
	dir := GetConfigDir()
	if dir == "" {
		return "", fmt.Errorf("failed to determine config directory")
	}
	return dir, nil
}

// LogDir returns the log directory path
func LogDir() string {
	dir := GetConfigDir()
	if dir == "" {
		return "logs"
	}
	return filepath.Join(dir, "logs")
}

// ConfigPath returns the configuration file path
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// TOMLConfigPath returns the path of the optional TOML configuration file
func TOMLConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads configuration from file and applies environment overrides.
// config.toml wins over config.yaml when both exist. A default
// config.yaml is written when neither exists. Fields the file leaves
// unset take the defaults of the effective environment: SQLITEMCP_ENV,
// then the file's env, then local.
func Load() (*Config, error) {
	decode, err := configDecoder()
	if err != nil {
		return nil, err
	}

	env := EnvLocal
	if decode != nil {
		var fileCfg Config
		if err := decode(&fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if parsed, err := ParseEnvironment(string(fileCfg.Env)); err == nil {
			env = parsed
		}
	}
	if v := os.Getenv(EnvVarEnv); v != "" {
		parsed, err := ParseEnvironment(v)
		if err != nil {
			return nil, fmt.Errorf("config error: %s: %w", EnvVarEnv, err)
		}
		env = parsed
	}

	cfg := DefaultConfigFor(env)
	if decode == nil {
		if err := Save(cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else if err := decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Store.DataDir = cfg.DataDirPath()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configDecoder reads the config file and returns a function that decodes
// it onto a Config. It returns nil when no config file exists.
func configDecoder() (func(*Config) error, error) {
	tomlPath, err := TOMLConfigPath()
	if err != nil {
		return nil, err
	}
	yamlPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if data, err := os.ReadFile(tomlPath); err == nil {
		return func(cfg *Config) error {
			_, err := toml.Decode(string(data), cfg)
			return err
		}, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	data, err := os.ReadFile(yamlPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return func(cfg *Config) error {
		return yaml.Unmarshal(data, cfg)
	}, nil
}

// applyEnv overrides fields from SQLITEMCP_* environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvVarEnv); v != "" {
		env, err := ParseEnvironment(v)
		if err != nil {
			return fmt.Errorf("config error: %s: %w", EnvVarEnv, err)
		}
		c.Env = env
	}
	if v := os.Getenv(EnvVarHost); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv(EnvVarPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: %s must be a number: %w", EnvVarPort, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvVarServerType); v != "" {
		t, err := ParseTransport(v)
		if err != nil {
			return fmt.Errorf("config error: %s: %w", EnvVarServerType, err)
		}
		c.Server.ServerType = t
	}
	if v := os.Getenv(EnvVarDataDir); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv(EnvVarDBFile); v != "" {
		c.Store.FileName = v
	}
	if v := os.Getenv(EnvVarLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvVarUsername); v != "" {
		c.Log.Username = v
	}
	return nil
}

// Save saves configuration to file
func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	content := "# sqlitemcp configuration file\n# SQLITEMCP_* environment variables override these values\n\n" + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := ParseEnvironment(string(c.Env)); err != nil {
		return fmt.Errorf("config error: env: %w", err)
	}

	if strings.TrimSpace(c.Server.Name) == "" {
		return fmt.Errorf("config error: server.name cannot be empty")
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("config error: server.host cannot be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: server.port must be between 1 and 65535")
	}
	if _, err := ParseTransport(string(c.Server.ServerType)); err != nil {
		return fmt.Errorf("config error: server.server_type: %w", err)
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("config error: server.shutdown_timeout_seconds must be greater than 0")
	}

	if strings.TrimSpace(c.Store.DataDir) == "" {
		return fmt.Errorf("config error: store.data_dir cannot be empty")
	}
	if strings.TrimSpace(c.Store.FileName) == "" {
		return fmt.Errorf("config error: store.file_name cannot be empty")
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config error: log.level must be one of debug, info, warn, error")
	}
	if c.Log.MaxDays <= 0 {
		return fmt.Errorf("config error: log.max_days must be greater than 0")
	}

	return nil
}

// Addr returns the listen address host:port
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// BaseURL returns the URL advertised to SSE clients
func (c *Config) BaseURL() string {
	if c.Server.PublicURL != "" {
		return strings.TrimRight(c.Server.PublicURL, "/")
	}
	return "http://" + c.Addr()
}

// SSEURL returns the event stream endpoint
func (c *Config) SSEURL() string {
	return c.BaseURL() + "/sse"
}

// DataDirPath returns the data directory. A relative data_dir is taken
// from the working directory.
func (c *Config) DataDirPath() string {
	if filepath.IsAbs(c.Store.DataDir) {
		return c.Store.DataDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return c.Store.DataDir
	}
	return filepath.Join(cwd, c.Store.DataDir)
}

// DBPath returns the database file path
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDirPath(), c.Store.FileName)
}

// String returns string representation of config
func (c *Config) String() string {
	return fmt.Sprintf(`sqlitemcp Configuration:
  Env: %s
  Server:
    Name: %s
    Server Type: %s
    Address: %s
    SSE Endpoint: %s
  Store:
    DB Path: %s
  Log:
    Level: %s
    Max Days: %d
    Console: %v
    Username: %s`,
		c.Env,
		c.Server.Name,
		c.Server.ServerType,
		c.Addr(),
		c.SSEURL(),
		c.DBPath(),
		c.Log.Level,
		c.Log.MaxDays,
		c.Log.Console,
		c.Log.Username,
	)
}
