// Package mcpadapter exposes the note assistant as MCP tools over stdio.
//
// Every call runs as a single configured owner; MCP stdio sessions have no
// bearer token to carry one.
package mcpadapter

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/PabloGalante/quicknotes-agent/internal/app/assistant"
	"github.com/PabloGalante/quicknotes-agent/internal/app/format"
	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// Version is set at build time via ldflags.
var Version = "dev"

// AssistantService is the chat surface the tools drive.
type AssistantService interface {
	Resolve(ctx context.Context, userID domain.UserID, message string) assistant.Reply
	Reset(userID domain.UserID)
}

// OperationExecutor runs typed note operations.
type OperationExecutor interface {
	Execute(ctx context.Context, owner domain.UserID, op tools.Operation) (*tools.Observation, error)
}

// New registers the tools and returns the server. owner is the user every
// call is attributed to.
func New(asst AssistantService, exec OperationExecutor, formatter *format.Formatter, owner domain.UserID) *server.MCPServer {
	if formatter == nil {
		formatter = format.New(nil)
	}

	s := server.NewMCPServer(
		"quicknotes",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	chat := NewChatTool(asst, owner)
	s.AddTool(chat.Definition(), chat.Handle)

	reset := NewResetTool(asst, owner)
	s.AddTool(reset.Definition(), reset.Handle)

	list := NewListTool(exec, formatter, owner)
	s.AddTool(list.Definition(), list.Handle)

	search := NewSearchTool(exec, formatter, owner)
	s.AddTool(search.Definition(), search.Handle)

	return s
}

// Serve blocks serving s on stdin/stdout.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `Quick is a note-taking assistant.
Use assistant_chat to talk to it in plain language ("add a note to buy milk",
"mark note 3 as done", "delete note 2"). When a reply asks a question, answer it
with another assistant_chat call. Use notes_list and notes_search for read-only
lookups, and assistant_reset to start the conversation over.`
