// Package skills loads the built-in review skill catalog and detects which
// skills apply to a project directory.
package skills

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin returns every built-in skill, sorted by id
func Builtin() ([]domain.Skill, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("skills.Builtin: %w", err)
	}
	var out []domain.Skill
	for _, e := range entries {
		data, err := builtinFS.ReadFile("builtin/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("skills.Builtin: read %q: %w", e.Name(), err)
		}
		sk, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("skills.Builtin: %q: %w", e.Name(), err)
		}
		sk.BuiltIn = true
		out = append(out, *sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MustBuiltin is Builtin for callers seeding fixed data
func MustBuiltin() []domain.Skill {
	out, err := Builtin()
	if err != nil {
		panic(err)
	}
	return out
}

// Parse decodes one YAML skill definition
func Parse(data []byte) (*domain.Skill, error) {
	var sk domain.Skill
	if err := yaml.Unmarshal(data, &sk); err != nil {
		return nil, fmt.Errorf("parse skill: %w", err)
	}
	if sk.ID == "" {
		return nil, fmt.Errorf("parse skill: missing id")
	}
	return &sk, nil
}

// LoadDir reads user-defined skills from *.yaml files in dir. A missing
// directory yields no skills.
func LoadDir(dir string) ([]domain.Skill, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	var out []domain.Skill
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read skill %s: %w", m, err)
		}
		sk, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m, err)
		}
		out = append(out, *sk)
	}
	return out, nil
}

// Context renders the enabled skills as prompt guidance
func Context(list []domain.Skill) string {
	var sb strings.Builder
	for _, sk := range list {
		if !sk.Enabled {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n%s\n", sk.Name, strings.TrimSpace(sk.Description))
		if c := strings.TrimSpace(sk.Content); c != "" {
			sb.WriteString(c)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// EnabledIDs lists the ids of enabled skills in order
func EnabledIDs(list []domain.Skill) []string {
	var ids []string
	for _, sk := range list {
		if sk.Enabled {
			ids = append(ids, sk.ID)
		}
	}
	return ids
}
