package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PabloGalante/quicknotes-agent/internal/app/conversation"
	"github.com/PabloGalante/quicknotes-agent/internal/app/format"
	"github.com/PabloGalante/quicknotes-agent/internal/app/intent"
	"github.com/PabloGalante/quicknotes-agent/internal/app/tools"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
	"github.com/PabloGalante/quicknotes-agent/internal/observability"
)

// Reply types.
const (
	TypeResponse    = "response"
	TypeOutput      = "output"
	TypeInformation = "information"
	TypeError       = "error"
)

// Reply is what the caller gets back for one message.
type Reply struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Type          string `json:"type"`
	RequiresInput bool   `json:"requiresInput,omitempty"`
}

// Searcher finds the caller's notes for the update override.
type Searcher interface {
	Search(ctx context.Context, owner domain.UserID, query string) ([]*domain.Note, error)
}

// Service resolves chat messages into note operations.
type Service struct {
	convs    *conversation.Manager
	bridge   *Bridge
	executor *tools.Executor
	search   Searcher
	format   *format.Formatter
	now      func() time.Time
}

func NewService(
	convs *conversation.Manager,
	llm domain.LLMClient,
	executor *tools.Executor,
	search Searcher,
	formatter *format.Formatter,
) *Service {
	if formatter == nil {
		formatter = format.New(nil)
	}
	return &Service{
		convs:    convs,
		bridge:   NewBridge(llm),
		executor: executor,
		search:   search,
		format:   formatter,
		now:      time.Now,
	}
}

// Resolve handles one message from userID. The user's conversation stays
// locked for the whole turn, so a user's messages are processed one at a time.
func (s *Service) Resolve(ctx context.Context, userID domain.UserID, message string) Reply {
	if strings.TrimSpace(string(userID)) == "" {
		return errorReply(domain.NewValidationError("user_id", "User authentication required").Error())
	}
	if strings.TrimSpace(message) == "" {
		return errorReply(domain.NewValidationError("message", "Message is required").Error())
	}

	log := observability.LoggerFromContext(ctx).With("user_id", userID)
	start := s.now()

	conv := s.convs.GetOrCreate(userID)
	conv.Lock()
	defer conv.Unlock()

	var reply Reply
	if in, ok := intent.Extract(message, conv.Pending()); ok {
		log.Info("intent matched", "extractor", in.Extractor, "kind", in.Kind.String())
		reply = s.handleIntent(ctx, conv, in)
	} else {
		log.Info("delegating to model")
		reply = s.delegate(ctx, conv, message)
	}

	log.Info("assistant turn done",
		"type", reply.Type,
		"success", reply.Success,
		"elapsed_ms", s.now().Sub(start).Milliseconds())
	return reply
}

// Reset clears one user's conversation.
func (s *Service) Reset(userID domain.UserID) {
	s.convs.Reset(userID)
}

// ResetAll clears every conversation.
func (s *Service) ResetAll() {
	s.convs.ResetAll()
}

// State returns a copy of userID's conversation. A user who never wrote gets
// an empty state.
func (s *Service) State(userID domain.UserID) domain.ConversationState {
	st, ok := s.convs.Snapshot(userID)
	if !ok {
		return domain.ConversationState{UserID: userID}
	}
	return st
}

func (s *Service) handleIntent(ctx context.Context, conv *conversation.Conversation, in intent.Intent) Reply {
	switch in.Kind {
	case intent.KindAskDeleteTarget:
		conv.SetPendingDelete()
		return question(s.format.AskDeleteTarget())
	case intent.KindAskStatus:
		conv.SetPendingStatus(in.Ref)
		return question(s.format.AskStatus(in.Ref))
	case intent.KindAskContent:
		conv.SetPendingContent(in.Ref)
		return question(s.format.AskContent(in.Ref))
	}

	if in.FromPending {
		conv.ClearPending()
	}

	op := tools.Operation{Ref: in.Ref}
	switch in.Kind {
	case intent.KindDelete:
		op.Kind = tools.OpDeleteNote
	case intent.KindUpdateStatus:
		op.Kind = tools.OpUpdateNoteStatus
		op.Completed = in.Completed
	case intent.KindUpdateContent:
		op.Kind = tools.OpUpdateNote
		op.Text = in.Text
	}

	return s.execute(ctx, conv, op)
}

func (s *Service) delegate(ctx context.Context, conv *conversation.Conversation, message string) Reply {
	action, userTurn, err := s.bridge.Dispatch(ctx, conv.Transcript(), message)
	if err != nil {
		return s.fail(ctx, conv, err)
	}

	if override, ok := s.updateOverride(ctx, conv.UserID(), message); ok {
		action = override
	}

	switch action.Kind {
	case KindReply, KindInform:
		conv.Append(userTurn, domain.Turn{Role: domain.RoleAssistant, Content: action.Raw})
		return Reply{Success: true, Message: action.Message, Type: action.Type, RequiresInput: true}
	}

	reply := s.execute(ctx, conv, action.Op)
	if reply.Success {
		conv.Append(userTurn, domain.Turn{Role: domain.RoleAssistant, Content: action.Raw})
	}
	return reply
}

// updateOverride replaces the model's decision when the message reads like
// "edit <something> to: <content>" and a note matches the stripped message.
// The most recently modified hit wins.
func (s *Service) updateOverride(ctx context.Context, owner domain.UserID, message string) (Action, bool) {
	if s.search == nil || !intent.IsUpdateRequest(message) {
		return Action{}, false
	}
	content := intent.UpdateContent(message)
	if content == "" {
		return Action{}, false
	}
	query := intent.StripUpdateKeywords(message)
	if query == "" {
		return Action{}, false
	}

	hits, err := s.search.Search(ctx, owner, query)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("update override search failed", "user_id", owner, "error", err)
		return Action{}, false
	}
	if len(hits) == 0 {
		return Action{}, false
	}

	observability.LoggerFromContext(ctx).Info("update override applied", "user_id", owner, "note_id", hits[0].Seq, "hits", len(hits))
	return invokeAction(tools.Operation{
		Kind: tools.OpUpdateNote,
		Ref:  refFromSeq(hits[0].Seq),
		Text: content,
	}), true
}

func (s *Service) execute(ctx context.Context, conv *conversation.Conversation, op tools.Operation) Reply {
	obs, err := s.executor.Execute(ctx, conv.UserID(), op)
	if err != nil {
		return s.fail(ctx, conv, err)
	}
	return Reply{Success: true, Message: s.format.Render(obs), Type: TypeResponse}
}

// fail resets the pending state and maps err to a user-facing reply.
func (s *Service) fail(ctx context.Context, conv *conversation.Conversation, err error) Reply {
	conv.ClearPending()

	log := observability.LoggerFromContext(ctx).With("user_id", conv.UserID())

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		log.Info("assistant turn rejected", "reason", ve.Message)
		return errorReply(ve.Message)
	case errors.Is(err, domain.ErrUpstreamModel):
		log.Warn("model reply unusable", "error", err)
		return errorReply(format.UpstreamErrorText)
	default:
		log.Error("assistant turn failed", "error", err)
		return errorReply(format.StoreErrorText)
	}
}

func question(msg string) Reply {
	return Reply{Success: true, Message: msg, Type: TypeOutput, RequiresInput: true}
}

func errorReply(msg string) Reply {
	return Reply{Success: false, Message: msg, Type: TypeError}
}
