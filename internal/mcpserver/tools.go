// Package mcpserver exposes the knowledge base to MCP clients.
//
// Each tool is a struct holding the knowledge service, with Definition()
// returning the mcp.Tool schema and Handle() serving calls. Failures are
// reported as tool errors, never as protocol errors.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pbaille/diffadvisor/internal/render"
	"github.com/pbaille/diffadvisor/internal/service"
	"github.com/pbaille/diffadvisor/internal/tree"
)

// intArg extracts an integer argument (JSON numbers arrive as float64)
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// SearchTool handles notes_search
type SearchTool struct {
	notes service.KnowledgeService
}

func NewSearchTool(notes service.KnowledgeService) *SearchTool {
	return &SearchTool{notes: notes}
}

func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("notes_search",
		mcp.WithDescription("Search the personal knowledge base built from commit debriefs. Matches titles, tags and content."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Case-insensitive substring to look for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10, max: 50)"),
		),
	)
}

func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := intArg(req, "limit", 10)
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	notes, err := t.notes.SearchNotes(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("No notes found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d notes:\n\n", len(notes))
	for i, n := range notes {
		if i == limit {
			fmt.Fprintf(&b, "... and %d more\n", len(notes)-limit)
			break
		}
		fmt.Fprintf(&b, "%d. %s [%s]\n   %s\n", i+1, n.Title, n.ID, n.FilePath)
		if len(n.Tags) > 0 {
			fmt.Fprintf(&b, "   tags: %s\n", strings.Join(n.Tags, ", "))
		}
		fmt.Fprintf(&b, "   %s\n", render.Truncate(n.Content, 160))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// TreeTool handles notes_tree
type TreeTool struct {
	notes service.KnowledgeService
}

func NewTreeTool(notes service.KnowledgeService) *TreeTool {
	return &TreeTool{notes: notes}
}

func (t *TreeTool) Definition() mcp.Tool {
	return mcp.NewTool("notes_tree",
		mcp.WithDescription("Show the category folders of the knowledge base with note counts and titles."),
		mcp.WithString("query",
			mcp.Description("Only include notes matching this filter"),
		),
		mcp.WithString("path",
			mcp.Description("Only show the subtree under this category path, e.g. concepts/security"),
		),
	)
}

func (t *TreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := t.notes.SearchNotes(ctx, req.GetString("query", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing notes failed: %v", err)), nil
	}
	roots := tree.Build(notes)
	if path := strings.Trim(req.GetString("path", ""), "/"); path != "" {
		node := tree.Find(roots, path)
		if node == nil {
			return mcp.NewToolResultError(fmt.Sprintf("no category %q", path)), nil
		}
		roots = []*tree.Node{node}
	}
	if len(roots) == 0 {
		return mcp.NewToolResultText("The knowledge base is empty."), nil
	}
	return mcp.NewToolResultText(render.Tree(roots, true)), nil
}

// ReadTool handles note_read
type ReadTool struct {
	notes service.KnowledgeService
}

func NewReadTool(notes service.KnowledgeService) *ReadTool {
	return &ReadTool{notes: notes}
}

func (t *ReadTool) Definition() mcp.Tool {
	return mcp.NewTool("note_read",
		mcp.WithDescription("Read the full markdown content of one knowledge note."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Note id as shown by notes_search or notes_tree"),
		),
	)
}

func (t *ReadTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	n, err := t.notes.Note(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read failed: %v", err)), nil
	}
	if n == nil {
		return mcp.NewToolResultError(fmt.Sprintf("note %s not found", id)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", n.Title)
	fmt.Fprintf(&b, "path: %s\n", n.FilePath)
	if len(n.Tags) > 0 {
		fmt.Fprintf(&b, "tags: %s\n", strings.Join(n.Tags, ", "))
	}
	fmt.Fprintf(&b, "updated: %s\n\n", n.UpdatedAt.Format("2006-01-02"))
	b.WriteString(n.Content)
	return mcp.NewToolResultText(b.String()), nil
}

// RelatedTool handles notes_related for services that rank by similarity
type RelatedTool struct {
	finder service.RelatedFinder
}

func NewRelatedTool(finder service.RelatedFinder) *RelatedTool {
	return &RelatedTool{finder: finder}
}

func (t *RelatedTool) Definition() mcp.Tool {
	return mcp.NewTool("notes_related",
		mcp.WithDescription("List the notes most similar to a given note."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Note id to find neighbours for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 5)"),
		),
	)
}

func (t *RelatedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	notes, err := t.finder.RelatedNotes(ctx, id, intArg(req, "limit", 5))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("related lookup failed: %v", err)), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("No related notes."), nil
	}
	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "- %s [%s] %s\n", n.Title, n.ID, n.CategoryPath)
	}
	return mcp.NewToolResultText(b.String()), nil
}
