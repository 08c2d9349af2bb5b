package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pbaille/diffadvisor/internal/api"
	"github.com/pbaille/diffadvisor/internal/config"
	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/logging"
	"github.com/pbaille/diffadvisor/internal/mock"
)

func TestPatchFromFlags(t *testing.T) {
	cmd := settingsSetCmd()
	if err := cmd.Flags().Parse([]string{"--model", "gpt-4o", "--depth", "deep", "--auto-notes=false"}); err != nil {
		t.Fatal(err)
	}
	p, err := patchFromFlags(cmd.Flags())
	if err != nil {
		t.Fatal(err)
	}
	if p.Project != nil || p.Appearance != nil {
		t.Errorf("untouched sections present: %+v", p)
	}
	if p.AI == nil || p.AI.Model == nil || *p.AI.Model != "gpt-4o" || p.AI.Provider != nil {
		t.Errorf("ai = %+v", p.AI)
	}
	if p.Analysis == nil || *p.Analysis.AnalysisDepth != domain.DepthDeep || p.Analysis.AutoAnalyze != nil {
		t.Errorf("analysis = %+v", p.Analysis)
	}
	if p.Knowledge == nil || p.Knowledge.AutoGenerateNotes == nil || *p.Knowledge.AutoGenerateNotes {
		t.Errorf("knowledge = %+v", p.Knowledge)
	}
}

func TestPatchFromFlagsRejectsUnknownValues(t *testing.T) {
	for _, args := range [][]string{
		{"--depth", "extreme"},
		{"--checkpoint-mode", "oral"},
		{"--language", "klingon"},
	} {
		cmd := settingsSetCmd()
		if err := cmd.Flags().Parse(args); err != nil {
			t.Fatal(err)
		}
		if _, err := patchFromFlags(cmd.Flags()); err == nil {
			t.Errorf("%v accepted", args)
		}
	}
}

func TestProviderFactoryFallsBackToEnv(t *testing.T) {
	t.Setenv("DIFFADVISOR_TEST_KEY", "")
	cfg := config.DefaultConfig()
	cfg.LLM.APIKeyEnv = "DIFFADVISOR_TEST_KEY"
	factory := providerFactory(cfg)

	_, err := factory(domain.AISettings{})
	if err == nil || !strings.Contains(err.Error(), "DIFFADVISOR_TEST_KEY") {
		t.Errorf("err = %v", err)
	}

	t.Setenv("DIFFADVISOR_TEST_KEY", "sk-test")
	if _, err := factory(domain.AISettings{}); err != nil {
		t.Errorf("key from env not used: %v", err)
	}
	if _, err := factory(domain.AISettings{Provider: "mystery", APIKey: "k"}); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	saved := []string{configPath, backendMode, dbPath, remoteURL, logLevel}
	t.Cleanup(func() {
		configPath, backendMode, dbPath, remoteURL, logLevel = saved[0], saved[1], saved[2], saved[3], saved[4]
	})

	configPath = filepath.Join(t.TempDir(), "missing.toml")
	backendMode, dbPath, logLevel = "", "", ""
	remoteURL = "http://127.0.0.1:9999/"

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BackendMode() != config.BackendRemote || cfg.RemoteURL() != "http://127.0.0.1:9999" {
		t.Errorf("cfg = %+v", cfg.Backend)
	}

	backendMode = "bogus"
	if _, err := loadConfig(); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "  ", "b", "c"); got != "b" {
		t.Errorf("got %q", got)
	}
	if got := firstNonEmpty(); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestOpenServicesChecksRemoteHealth(t *testing.T) {
	srv := httptest.NewServer(api.New(mock.New().Services(), "", nil).Handler())
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Backend.Mode = config.BackendRemote
	cfg.Backend.RemoteURL = srv.URL
	e := &env{cfg: cfg, log: logging.Discard()}
	svcs, err := e.openServices()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svcs.Projects.Projects(context.Background()); err != nil {
		t.Errorf("projects through remote: %v", err)
	}

	srv.Close()
	if _, err := e.openServices(); err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Errorf("err = %v", err)
	}
}
