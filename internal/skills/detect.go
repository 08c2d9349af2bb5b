package skills

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
)

// maxScanFiles bounds the extension scan on large repositories
const maxScanFiles = 5000

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true,
	"build": true, "__pycache__": true, ".venv": true, "target": true,
}

// Detect returns the ids of skills whose rules match the project at dir.
// A skill without any rules applies to every project.
func Detect(dir string, catalog []domain.Skill) []string {
	exts := scanExtensions(dir)

	var ids []string
	for _, sk := range catalog {
		if matches(dir, sk.Detect, exts) {
			ids = append(ids, sk.ID)
		}
	}
	return ids
}

func matches(dir string, d domain.SkillDetect, exts map[string]bool) bool {
	if len(d.Files) > 0 {
		found := false
		for _, f := range d.Files {
			data, err := os.ReadFile(filepath.Join(dir, f))
			if err != nil {
				continue
			}
			if len(d.ContentPatterns) == 0 || containsAny(string(data), d.ContentPatterns) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(d.Extensions) > 0 {
		for _, e := range d.Extensions {
			if exts[strings.ToLower(e)] {
				return true
			}
		}
		return false
	}
	return true
}

func containsAny(s string, patterns []string) bool {
	lower := strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func scanExtensions(dir string) map[string]bool {
	exts := map[string]bool{}
	seen := 0
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		seen++
		if seen > maxScanFiles {
			return filepath.SkipAll
		}
		if ext := strings.ToLower(filepath.Ext(d.Name())); ext != "" {
			exts[ext] = true
		}
		return nil
	})
	return exts
}

// Apply marks catalog entries found in detected as enabled and auto-detected
func Apply(catalog []domain.Skill, detected []string) []domain.Skill {
	set := make(map[string]bool, len(detected))
	for _, id := range detected {
		set[id] = true
	}
	out := make([]domain.Skill, len(catalog))
	for i, sk := range catalog {
		if set[sk.ID] {
			sk.Enabled = true
			sk.AutoDetected = true
		}
		out[i] = sk
	}
	return out
}
