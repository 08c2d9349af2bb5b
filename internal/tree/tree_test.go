package tree

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/pbaille/diffadvisor/internal/domain"
)

func note(id, path string) domain.KnowledgeNote {
	return domain.KnowledgeNote{ID: id, Title: id, CategoryPath: path}
}

// shape flattens a tree into path -> sorted note ids for structural comparison
func shape(roots []*Node) map[string]string {
	out := map[string]string{}
	Walk(roots, func(n *Node, _ int) bool {
		ids := make([]string, len(n.Notes))
		for i, nt := range n.Notes {
			ids[i] = nt.ID
		}
		sort.Strings(ids)
		out[n.Path] = n.Name + ":" + strings.Join(ids, ",")
		return true
	})
	return out
}

func TestBuildLanguagesScenario(t *testing.T) {
	notes := []domain.KnowledgeNote{
		note("js1", "languages/javascript"),
		note("py1", "languages/python"),
		note("js2", "languages/javascript"),
		note("js3", "languages/javascript"),
		note("py2", "languages/python"),
	}

	roots := Build(notes)
	if len(roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(roots))
	}
	lang := roots[0]
	if lang.Name != "languages" || lang.Path != "languages" {
		t.Errorf("root = %q (%q), want languages", lang.Name, lang.Path)
	}
	if len(lang.Notes) != 0 {
		t.Errorf("languages holds %d notes, want 0", len(lang.Notes))
	}
	if len(lang.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(lang.Children))
	}

	js := lang.Children["javascript"]
	py := lang.Children["python"]
	if js == nil || py == nil {
		t.Fatalf("missing children: %v", lang.Children)
	}
	if len(js.Notes) != 3 {
		t.Errorf("javascript notes = %d, want 3", len(js.Notes))
	}
	if len(py.Notes) != 2 {
		t.Errorf("python notes = %d, want 2", len(py.Notes))
	}
	if js.Path != "languages/javascript" {
		t.Errorf("javascript path = %q", js.Path)
	}

	// input relative order survives inside a node
	got := []string{js.Notes[0].ID, js.Notes[1].ID, js.Notes[2].ID}
	if strings.Join(got, ",") != "js1,js2,js3" {
		t.Errorf("javascript order = %v", got)
	}
}

func TestBuildIdempotentAndOrderIndependent(t *testing.T) {
	paths := []string{
		"concepts/security", "concepts/security", "languages/javascript",
		"languages/python", "patterns/backend/middleware", "patterns", "a/b/c/d",
	}
	var notes []domain.KnowledgeNote
	for i, p := range paths {
		notes = append(notes, note(fmt.Sprintf("n%d", i), p))
	}

	want := shape(Build(notes))
	if again := shape(Build(notes)); fmt.Sprint(again) != fmt.Sprint(want) {
		t.Fatalf("rebuild differs:\n got %v\nwant %v", again, want)
	}

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]domain.KnowledgeNote(nil), notes...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := shape(Build(shuffled)); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("shuffle %d differs:\n got %v\nwant %v", i, got, want)
		}
	}
}

func TestBuildPrefixInvariant(t *testing.T) {
	notes := []domain.KnowledgeNote{
		note("1", "a/b/c"),
		note("2", "x/y"),
		note("3", "a/q"),
	}
	roots := Build(notes)

	Walk(roots, func(n *Node, depth int) bool {
		parts := strings.Split(n.Path, Separator)
		if len(parts) != depth+1 {
			t.Errorf("node %q at depth %d", n.Path, depth)
		}
		if parts[len(parts)-1] != n.Name {
			t.Errorf("node %q has name %q", n.Path, n.Name)
		}
		for i := 1; i < len(parts); i++ {
			prefix := strings.Join(parts[:i], Separator)
			if Find(roots, prefix) == nil {
				t.Errorf("missing ancestor %q of %q", prefix, n.Path)
			}
		}
		for _, c := range n.Children {
			if c.Path != n.Path+Separator+c.Name {
				t.Errorf("child path %q under %q", c.Path, n.Path)
			}
		}
		return true
	})

	ab := Find(roots, "a/b")
	if ab == nil || len(ab.Notes) != 0 {
		t.Errorf("a/b should exist with no notes, got %+v", ab)
	}
	if c := Find(roots, "a/b/c"); c == nil || len(c.Notes) != 1 {
		t.Errorf("a/b/c should hold one note, got %+v", c)
	}
}

func TestBuildDegeneratePaths(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		names []string
	}{
		{"empty", "", []string{""}},
		{"doubled separator", "a//b", []string{"a", "", "b"}},
		{"leading separator", "/a", []string{"", "a"}},
		{"trailing separator", "a/", []string{"a", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots := Build([]domain.KnowledgeNote{note("n", tt.path)})
			var names []string
			Walk(roots, func(n *Node, _ int) bool {
				names = append(names, n.Name)
				return true
			})
			if fmt.Sprint(names) != fmt.Sprint(tt.names) {
				t.Errorf("names = %q, want %q", names, tt.names)
			}
			leaf := Find(roots, tt.path)
			if leaf == nil || len(leaf.Notes) != 1 {
				t.Errorf("leaf for %q = %+v", tt.path, leaf)
			}
		})
	}
}

func TestBuildEmpty(t *testing.T) {
	if roots := Build(nil); len(roots) != 0 {
		t.Errorf("Build(nil) = %d roots", len(roots))
	}
}

func TestCount(t *testing.T) {
	roots := Build([]domain.KnowledgeNote{
		note("1", "a"), note("2", "a/b"), note("3", "a/b"), note("4", "a/c/d"),
	})
	if got := Count(Find(roots, "a")); got != 4 {
		t.Errorf("Count(a) = %d, want 4", got)
	}
	if got := Count(Find(roots, "a/b")); got != 2 {
		t.Errorf("Count(a/b) = %d, want 2", got)
	}
	if Find(roots, "a/z") != nil {
		t.Error("Find(a/z) should be nil")
	}
}
