package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const appDirName = ".diffadvisor"

// Backend modes. Selection is always explicit, from config or --backend.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendRemote = "remote"
)

const (
	defaultServerAddr = "127.0.0.1:8080"
	defaultProvider   = "anthropic"
	defaultModel      = "claude-sonnet-4-20250514"
)

type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	LLM       LLMConfig       `toml:"llm"`
	Prefs     PrefsConfig     `toml:"prefs"`
	Embedding EmbeddingConfig `toml:"embedding"`
}

type BackendConfig struct {
	Mode      string `toml:"mode"`
	DBPath    string `toml:"db_path"`
	RemoteURL string `toml:"remote_url"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"`
}

type PrefsConfig struct {
	Path string `toml:"path"`
}

type EmbeddingConfig struct {
	Enabled bool `toml:"enabled"`
}

// DataDir returns the base data directory
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// Path returns the default config file location
func Path() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendConfig{Mode: BackendMemory},
		Server:  ServerConfig{Addr: defaultServerAddr},
		Logging: LoggingConfig{Level: "info"},
		LLM: LLMConfig{
			Provider: defaultProvider,
			Model:    defaultModel,
		},
	}
}

// Load reads the config at path over the defaults. An empty path means the
// default location; a missing file yields the defaults.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		p, err := Path()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	path, err := expandHome(path)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	if err := readTOML(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readTOML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return toml.Unmarshal(data, out)
}

// Save writes cfg as TOML, creating the parent directory
func Save(path string, cfg Config) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func expandHome(path string) (string, error) {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// Validate rejects unknown backend modes and a remote mode without a URL
func (c Config) Validate() error {
	switch c.BackendMode() {
	case BackendMemory, BackendLocal:
		return nil
	case BackendRemote:
		if c.RemoteURL() == "" {
			return errors.New("backend.remote_url is required in remote mode")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend mode %q", c.Backend.Mode)
	}
}

func (c Config) BackendMode() string {
	mode := strings.ToLower(strings.TrimSpace(c.Backend.Mode))
	if mode == "" {
		return BackendMemory
	}
	return mode
}

// DBPath is the SQLite file for the local backend
func (c Config) DBPath() string {
	if p := strings.TrimSpace(c.Backend.DBPath); p != "" {
		if expanded, err := expandHome(p); err == nil {
			return expanded
		}
		return p
	}
	return dataFile("diffadvisor.db")
}

func (c Config) RemoteURL() string {
	return strings.TrimRight(strings.TrimSpace(c.Backend.RemoteURL), "/")
}

func (c Config) ServerAddr() string {
	addr := strings.TrimSpace(c.Server.Addr)
	if addr == "" {
		return defaultServerAddr
	}
	return addr
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}

func (c Config) LLMProvider() string {
	p := strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if p == "" {
		return defaultProvider
	}
	return p
}

func (c Config) LLMModel() string {
	m := strings.TrimSpace(c.LLM.Model)
	if m == "" {
		return defaultModel
	}
	return m
}

func (c Config) LLMBaseURL() string {
	return strings.TrimSpace(c.LLM.BaseURL)
}

// APIKeyEnv names the environment variable holding the provider key
func (c Config) APIKeyEnv() string {
	if env := strings.TrimSpace(c.LLM.APIKeyEnv); env != "" {
		return env
	}
	if c.LLMProvider() == "openai" {
		return "OPENAI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// PrefsPath is the bbolt file holding client-local preferences
func (c Config) PrefsPath() string {
	if p := strings.TrimSpace(c.Prefs.Path); p != "" {
		if expanded, err := expandHome(p); err == nil {
			return expanded
		}
		return p
	}
	return dataFile("prefs.db")
}

func (c Config) EmbeddingEnabled() bool {
	return c.Embedding.Enabled
}

func dataFile(name string) string {
	dir, err := DataDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, name)
}
