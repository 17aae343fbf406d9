package mcpadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/PabloGalante/quicknotes-agent/internal/app/format"
	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
)

// ChatTool handles the assistant_chat MCP tool.
type ChatTool struct {
	asst  AssistantService
	owner domain.UserID
}

func NewChatTool(asst AssistantService, owner domain.UserID) *ChatTool {
	return &ChatTool{asst: asst, owner: owner}
}

// Definition returns the MCP tool definition for registration.
func (t *ChatTool) Definition() mcp.Tool {
	return mcp.NewTool("assistant_chat",
		mcp.WithDescription(
			"Send one message to the note assistant and get its reply. "+
				"The assistant keeps the conversation, so follow-up answers "+
				"(a note number, a status, new content) go in the next call.",
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("What the user said, e.g. 'show my notes' or 'mark note 2 as done'."),
		),
	)
}

// Handle processes the assistant_chat tool call.
func (t *ChatTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := req.GetString("message", "")
	if strings.TrimSpace(message) == "" {
		return mcp.NewToolResultError("Please provide a question or command."), nil
	}

	reply := t.asst.Resolve(ctx, t.owner, message)
	if !reply.Success {
		return mcp.NewToolResultError(reply.Message), nil
	}
	if reply.RequiresInput {
		return mcp.NewToolResultText(reply.Message + "\n\n(awaiting your answer)"), nil
	}
	return mcp.NewToolResultText(reply.Message), nil
}

// ResetTool handles the assistant_reset MCP tool.
type ResetTool struct {
	asst  AssistantService
	owner domain.UserID
}

func NewResetTool(asst AssistantService, owner domain.UserID) *ResetTool {
	return &ResetTool{asst: asst, owner: owner}
}

func (t *ResetTool) Definition() mcp.Tool {
	return mcp.NewTool("assistant_reset",
		mcp.WithDescription("Forget the conversation, including any question the assistant is waiting on."),
	)
}

func (t *ResetTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.asst.Reset(t.owner)
	return mcp.NewToolResultText("Conversation reset"), nil
}

// ListTool handles the notes_list MCP tool.
type ListTool struct {
	exec   OperationExecutor
	format *format.Formatter
	owner  domain.UserID
}

func NewListTool(exec OperationExecutor, formatter *format.Formatter, owner domain.UserID) *ListTool {
	return &ListTool{exec: exec, format: formatter, owner: owner}
}

func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("notes_list",
		mcp.WithDescription("List all notes, most recently modified first."),
	)
}

func (t *ListTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return run(ctx, t.exec, t.format, t.owner, tools.Operation{Kind: tools.OpGetNotes})
}

// SearchTool handles the notes_search MCP tool.
type SearchTool struct {
	exec   OperationExecutor
	format *format.Formatter
	owner  domain.UserID
}

func NewSearchTool(exec OperationExecutor, formatter *format.Formatter, owner domain.UserID) *SearchTool {
	return &SearchTool{exec: exec, format: formatter, owner: owner}
}

func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("notes_search",
		mcp.WithDescription("Find notes whose text contains the query, ignoring case."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to look for."),
		),
	)
}

func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(req.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("Search query is required"), nil
	}
	return run(ctx, t.exec, t.format, t.owner, tools.Operation{Kind: tools.OpSearchNote, Query: query})
}

func run(ctx context.Context, exec OperationExecutor, f *format.Formatter, owner domain.UserID, op tools.Operation) (*mcp.CallToolResult, error) {
	obs, err := exec.Execute(ctx, owner, op)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.Kind, err)
	}
	if !obs.Success {
		return mcp.NewToolResultError(obs.Message), nil
	}
	return mcp.NewToolResultText(f.Render(obs)), nil
}
