package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendMode() != BackendMemory {
		t.Errorf("mode = %q", cfg.BackendMode())
	}
	if cfg.ServerAddr() != "127.0.0.1:8080" {
		t.Errorf("addr = %q", cfg.ServerAddr())
	}
	if cfg.DBPath() != filepath.Join(home, ".diffadvisor", "diffadvisor.db") {
		t.Errorf("db path = %q", cfg.DBPath())
	}
	if cfg.APIKeyEnv() != "ANTHROPIC_API_KEY" {
		t.Errorf("api key env = %q", cfg.APIKeyEnv())
	}
}

func TestLoadFromTOML(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := []byte(`
[backend]
mode = "Remote"
remote_url = "http://127.0.0.1:9999/"

[llm]
provider = "openai"
model = "gpt-4o-mini"

[prefs]
path = "~/prefs/custom.db"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendMode() != BackendRemote {
		t.Errorf("mode = %q", cfg.BackendMode())
	}
	if cfg.RemoteURL() != "http://127.0.0.1:9999" {
		t.Errorf("remote url = %q", cfg.RemoteURL())
	}
	if cfg.LLMProvider() != "openai" || cfg.LLMModel() != "gpt-4o-mini" {
		t.Errorf("llm = %q %q", cfg.LLMProvider(), cfg.LLMModel())
	}
	if cfg.APIKeyEnv() != "OPENAI_API_KEY" {
		t.Errorf("api key env = %q", cfg.APIKeyEnv())
	}
	if cfg.PrefsPath() != filepath.Join(home, "prefs", "custom.db") {
		t.Errorf("prefs path = %q", cfg.PrefsPath())
	}
	// Untouched sections keep their defaults
	if cfg.LogLevel() != "info" {
		t.Errorf("log level = %q", cfg.LogLevel())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		backend BackendConfig
		wantErr bool
	}{
		{"empty is memory", BackendConfig{}, false},
		{"local", BackendConfig{Mode: "local"}, false},
		{"remote without url", BackendConfig{Mode: "remote"}, true},
		{"remote with url", BackendConfig{Mode: "remote", RemoteURL: "http://x"}, false},
		{"unknown", BackendConfig{Mode: "cloud"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Config{Backend: tt.backend}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := DefaultConfig()
	cfg.Backend.Mode = BackendLocal
	cfg.Embedding.Enabled = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.BackendMode() != BackendLocal || !got.EmbeddingEnabled() {
		t.Errorf("got = %+v", got)
	}
}
