package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pbaille/diffadvisor/internal/classifier"
	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/embedding"
	"github.com/pbaille/diffadvisor/internal/fetcher"
	"github.com/pbaille/diffadvisor/internal/service"
)

func (b *Backend) Notes(ctx context.Context) ([]domain.KnowledgeNote, error) {
	return b.store.ListNotes(ctx)
}

func (b *Backend) Note(ctx context.Context, id string) (*domain.KnowledgeNote, error) {
	return b.store.GetNote(ctx, id)
}

// SaveNote inserts a new note, or merges the draft over the stored note with
// the same id. Tags, project and the auto-generated flag survive an update
// that leaves them unset.
func (b *Backend) SaveNote(ctx context.Context, d domain.NoteDraft) (*domain.KnowledgeNote, error) {
	if err := service.ValidateDraft(d); err != nil {
		return nil, err
	}

	now := b.now()
	n := domain.KnowledgeNote{ID: d.ID, Tags: []string{}, CreatedAt: now}
	if d.ID == "" {
		n.ID = newID("note")
	} else {
		existing, err := b.store.GetNote(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			n = *existing
		}
	}

	n.Title = d.Title
	n.CategoryPath = d.CategoryPath
	n.Content = d.Content
	if d.ProjectID != nil {
		n.ProjectID = d.ProjectID
	}
	if d.AutoGenerated != nil {
		n.AutoGenerated = *d.AutoGenerated
	}
	if d.Tags != nil {
		n.Tags = d.Tags
	}
	n.FilePath = domain.NoteFilePath(n.CategoryPath, n.Title)
	n.UpdatedAt = now

	if err := b.store.PutNote(ctx, n); err != nil {
		return nil, err
	}
	b.embed(ctx, n)
	return &n, nil
}

// embed stores the note vector when an embedder is configured
func (b *Backend) embed(ctx context.Context, n domain.KnowledgeNote) {
	if b.embedder == nil {
		return
	}
	vecs, err := b.embedder.EmbedBatch(ctx, []string{embedding.NoteText(n)})
	if err == nil && len(vecs) == 1 {
		err = b.store.SaveEmbedding(ctx, n.ID, vecs[0])
	}
	if err != nil {
		b.log.Warn("embed note failed", "note", n.ID, "error", err)
	}
}

func (b *Backend) DeleteNote(ctx context.Context, id string) error {
	return b.store.DeleteNote(ctx, id)
}

func (b *Backend) SearchNotes(ctx context.Context, query string) ([]domain.KnowledgeNote, error) {
	return b.store.SearchNotes(ctx, query)
}

// RelatedNotes returns up to k notes closest to id by embedding. Notes
// without a vector are never returned; an unknown id yields an empty list.
func (b *Backend) RelatedNotes(ctx context.Context, id string, k int) ([]domain.KnowledgeNote, error) {
	vectors, err := b.store.Embeddings(ctx)
	if err != nil {
		return nil, err
	}
	query, ok := vectors[id]
	if !ok {
		return []domain.KnowledgeNote{}, nil
	}
	delete(vectors, id)

	out := []domain.KnowledgeNote{}
	for _, m := range embedding.Rank(query, vectors, k) {
		n, err := b.store.GetNote(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, *n)
		}
	}
	return out, nil
}

// ImportURL fetches a web page and saves its readable text as a note. With
// no category path, the model picks a category and tags; when it cannot, the
// note is filed under imports.
func (b *Backend) ImportURL(ctx context.Context, rawURL, categoryPath string) (*domain.KnowledgeNote, error) {
	page, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", rawURL, err)
	}
	title := sanitizeTitle(page.Title)
	content := fmt.Sprintf("# %s\n\nSource: %s\n\n%s\n", page.Title, page.URL, page.Text)

	tags := []string{"imported"}
	categoryPath = strings.Trim(categoryPath, "/")
	if categoryPath == "" {
		categoryPath = importCategory
		if s := b.classify(ctx, title, page.Text); s != nil {
			if s.Category != "" {
				categoryPath = s.Category
			}
			for _, t := range s.Tags {
				if t != "imported" {
					tags = append(tags, t)
				}
			}
		}
	}

	return b.SaveNote(ctx, domain.NoteDraft{
		Title:        title,
		CategoryPath: categoryPath,
		Content:      content,
		Tags:         tags,
	})
}

const importCategory = "imports"

// classify asks the model where an imported page belongs. Failures are
// logged and yield nil.
func (b *Backend) classify(ctx context.Context, title, text string) *classifier.Suggestion {
	p, _, err := b.provider(ctx)
	if err != nil {
		b.log.Warn("import classification skipped", "error", err)
		return nil
	}
	notes, err := b.store.ListNotes(ctx)
	if err != nil {
		b.log.Warn("import classification skipped", "error", err)
		return nil
	}
	categories, tags := vocabulary(notes)

	s, err := classifier.New(p).Classify(ctx, title, text, categories, tags)
	if err != nil {
		b.log.Warn("import classification failed", "title", title, "error", err)
		return nil
	}
	return s
}

// vocabulary lists the distinct categories and tags already in use
func vocabulary(notes []domain.KnowledgeNote) (categories, tags []string) {
	seenCat, seenTag := map[string]bool{}, map[string]bool{}
	for _, n := range notes {
		if n.CategoryPath != "" && !seenCat[n.CategoryPath] {
			seenCat[n.CategoryPath] = true
			categories = append(categories, n.CategoryPath)
		}
		for _, t := range n.Tags {
			if !seenTag[t] {
				seenTag[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(categories)
	sort.Strings(tags)
	return categories, tags
}

// maxTitleRunes bounds imported titles, which become file names
const maxTitleRunes = 120

// sanitizeTitle keeps a title usable as a file name
func sanitizeTitle(title string) string {
	title = strings.NewReplacer("/", "-", `\`, "-", ":", " -").Replace(title)
	title = strings.Join(strings.Fields(title), " ")
	if r := []rune(title); len(r) > maxTitleRunes {
		title = strings.TrimSpace(string(r[:maxTitleRunes]))
	}
	if title == "" {
		return "Imported page"
	}
	return title
}
