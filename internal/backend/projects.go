package backend

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/skills"
	"github.com/pbaille/diffadvisor/internal/store"
)

func (b *Backend) Projects(ctx context.Context) ([]domain.Project, error) {
	return b.store.ListProjects(ctx)
}

func (b *Backend) ActiveProject(ctx context.Context) (*domain.Project, error) {
	id, err := b.store.ActiveProjectID(ctx)
	if err != nil || id == "" {
		return nil, err
	}
	return b.store.GetProject(ctx, id)
}

func (b *Backend) SetActiveProject(ctx context.Context, id string) error {
	return b.store.SetActiveProjectID(ctx, id)
}

// AddProject registers the repository at path. Skills are detected from the
// directory contents; the first project added becomes active.
func (b *Backend) AddProject(ctx context.Context, path string) (*domain.Project, error) {
	detected := skills.Detect(path, b.catalog)
	p := domain.Project{
		ID:           newID("proj"),
		Name:         projectName(path),
		Path:         path,
		Language:     languageOf(detected),
		Frameworks:   frameworksOf(detected, b.catalog),
		ActiveSkills: nonNil(detected),
		CreatedAt:    b.now(),
	}
	if err := b.store.InsertProject(ctx, p); err != nil {
		return nil, err
	}

	overrides, err := b.store.SkillOverrides(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range detected {
		if _, set := overrides[id]; set {
			continue
		}
		if err := b.store.SetSkillOverride(ctx, id, store.SkillOverride{Enabled: true, AutoDetected: true}); err != nil {
			return nil, err
		}
	}

	if active, err := b.store.ActiveProjectID(ctx); err == nil && active == "" {
		if err := b.store.SetActiveProjectID(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	b.log.Info("project added", "id", p.ID, "path", path, "skills", detected)
	return &p, nil
}

func (b *Backend) RemoveProject(ctx context.Context, id string) error {
	if err := b.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	active, err := b.store.ActiveProjectID(ctx)
	if err != nil {
		return err
	}
	if active == id {
		return b.store.SetActiveProjectID(ctx, "")
	}
	return nil
}

// projectName is the last path segment
func projectName(path string) string {
	name := filepath.Base(strings.TrimRight(path, `/\`))
	if name == "." || name == "/" || name == "" {
		return "unknown"
	}
	return name
}

var skillLanguages = map[string]string{
	"nodejs-express": "JavaScript",
	"react":          "JavaScript",
	"nextjs":         "TypeScript",
	"django":         "Python",
}

func languageOf(detected []string) string {
	for _, id := range detected {
		if lang, ok := skillLanguages[id]; ok {
			return lang
		}
	}
	return ""
}

// frameworksOf names the detected skills that carry detection rules
func frameworksOf(detected []string, catalog []domain.Skill) []string {
	set := map[string]bool{}
	for _, id := range detected {
		set[id] = true
	}
	out := []string{}
	for _, sk := range catalog {
		d := sk.Detect
		if set[sk.ID] && len(d.Files)+len(d.ContentPatterns) > 0 {
			out = append(out, sk.Name)
		}
	}
	return out
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
