package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/pbaille/diffadvisor/internal/service"
)

const instructions = `diffadvisor keeps a personal knowledge base of notes distilled from commit reviews.
Use notes_search to find notes by keyword, notes_tree to browse categories, and note_read to open one.`

// New registers the knowledge tools on a fresh MCP server. notes_related is
// only offered when the service can rank notes.
func New(notes service.KnowledgeService, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"diffadvisor",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	search := NewSearchTool(notes)
	s.AddTool(search.Definition(), search.Handle)

	browse := NewTreeTool(notes)
	s.AddTool(browse.Definition(), browse.Handle)

	read := NewReadTool(notes)
	s.AddTool(read.Definition(), read.Handle)

	if finder, ok := notes.(service.RelatedFinder); ok {
		related := NewRelatedTool(finder)
		s.AddTool(related.Definition(), related.Handle)
	}
	return s
}
