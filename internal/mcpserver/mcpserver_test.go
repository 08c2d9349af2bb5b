package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pbaille/diffadvisor/internal/domain"
	"github.com/pbaille/diffadvisor/internal/mock"
)

// makeReq creates a CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSearchTool(t *testing.T) {
	tool := NewSearchTool(mock.New())
	ctx := context.Background()

	res, err := tool.Handle(ctx, makeReq(map[string]interface{}{"query": "jwt"}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError || !strings.Contains(resultText(res), "JWT Authentication [note-1]") {
		t.Errorf("result = %s", resultText(res))
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"query": "zzz-nothing"}))
	if !strings.Contains(resultText(res), "No notes found") {
		t.Errorf("result = %s", resultText(res))
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{}))
	if !res.IsError {
		t.Error("expected error for missing query")
	}
}

func TestSearchToolLimit(t *testing.T) {
	tool := NewSearchTool(mock.New())
	res, _ := tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "e", "limit": float64(2)}))
	text := resultText(res)
	if !strings.Contains(text, "\n2. ") || strings.Contains(text, "\n3. ") || !strings.Contains(text, "more") {
		t.Errorf("result = %s", text)
	}
}

func TestSearchToolFailure(t *testing.T) {
	b := mock.New()
	b.Fail("SearchNotes", errors.New("offline"))
	res, err := NewSearchTool(b).Handle(context.Background(), makeReq(map[string]interface{}{"query": "jwt"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(resultText(res), "offline") {
		t.Errorf("result = %s", resultText(res))
	}
}

func TestTreeTool(t *testing.T) {
	tool := NewTreeTool(mock.New())
	ctx := context.Background()

	res, _ := tool.Handle(ctx, makeReq(map[string]interface{}{}))
	text := resultText(res)
	if !strings.Contains(text, "concepts/") || !strings.Contains(text, "  security/") {
		t.Errorf("tree = %s", text)
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"path": "/concepts/security/"}))
	text = resultText(res)
	if !strings.HasPrefix(text, "security/") || strings.Contains(text, "languages") {
		t.Errorf("subtree = %s", text)
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"path": "nope"}))
	if !res.IsError {
		t.Error("expected error for unknown path")
	}
}

func TestReadTool(t *testing.T) {
	tool := NewReadTool(mock.New())
	ctx := context.Background()

	res, _ := tool.Handle(ctx, makeReq(map[string]interface{}{"id": mock.DefaultNoteID}))
	text := resultText(res)
	if res.IsError || !strings.HasPrefix(text, "# JWT Authentication") || !strings.Contains(text, "path: concepts/security/") {
		t.Errorf("note = %s", text)
	}

	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"id": "missing"}))
	if !res.IsError || !strings.Contains(resultText(res), "not found") {
		t.Errorf("result = %s", resultText(res))
	}
}

type fakeFinder struct{}

func (fakeFinder) RelatedNotes(ctx context.Context, id string, k int) ([]domain.KnowledgeNote, error) {
	if id == "lonely" {
		return nil, nil
	}
	return []domain.KnowledgeNote{{ID: "note-2", Title: "Input Validation", CategoryPath: "concepts/security"}}[:min(k, 1)], nil
}

func TestRelatedTool(t *testing.T) {
	tool := NewRelatedTool(fakeFinder{})
	ctx := context.Background()

	res, _ := tool.Handle(ctx, makeReq(map[string]interface{}{"id": "note-1"}))
	if !strings.Contains(resultText(res), "Input Validation [note-2]") {
		t.Errorf("result = %s", resultText(res))
	}
	res, _ = tool.Handle(ctx, makeReq(map[string]interface{}{"id": "lonely"}))
	if resultText(res) != "No related notes." {
		t.Errorf("result = %s", resultText(res))
	}
}

type relatedKnowledge struct {
	*mock.Backend
	fakeFinder
}

func listTools(t *testing.T, s interface {
	HandleMessage(context.Context, json.RawMessage) mcp.JSONRPCMessage
}) string {
	t.Helper()
	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestServerRegistersTools(t *testing.T) {
	plain := listTools(t, New(mock.New(), "test"))
	for _, name := range []string{"notes_search", "notes_tree", "note_read"} {
		if !strings.Contains(plain, `"`+name+`"`) {
			t.Errorf("%s not registered: %s", name, plain)
		}
	}
	if strings.Contains(plain, "notes_related") {
		t.Error("notes_related offered without a finder")
	}

	withFinder := listTools(t, New(relatedKnowledge{Backend: mock.New()}, "test"))
	if !strings.Contains(withFinder, `"notes_related"`) {
		t.Errorf("notes_related missing: %s", withFinder)
	}
}
