package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/PabloGalante/quicknotes-agent/internal/app/assistant"
	"github.com/PabloGalante/quicknotes-agent/internal/domain"
	"github.com/PabloGalante/quicknotes-agent/internal/observability"
)

// AssistantService is the chat surface the server exposes.
type AssistantService interface {
	Resolve(ctx context.Context, userID domain.UserID, message string) assistant.Reply
	Reset(userID domain.UserID)
	State(userID domain.UserID) domain.ConversationState
}

// NoteService is the notes CRUD surface the server exposes.
type NoteService interface {
	Create(ctx context.Context, owner domain.UserID, text string) (*domain.Note, error)
	Get(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error)
	List(ctx context.Context, owner domain.UserID) ([]*domain.Note, error)
	Search(ctx context.Context, owner domain.UserID, query string) ([]*domain.Note, error)
	UpdateText(ctx context.Context, owner domain.UserID, ref, text string) (*domain.Note, error)
	SetStatus(ctx context.Context, owner domain.UserID, ref string, completed bool) (*domain.Note, error)
	Delete(ctx context.Context, owner domain.UserID, ref string) (*domain.Note, error)
}

type Server struct {
	assistant AssistantService
	notes     NoteService
}

func NewServer(asst AssistantService, notes NoteService, auth *Authenticator) http.Handler {
	s := &Server{assistant: asst, notes: notes}
	mux := http.NewServeMux()
	authed := withAuth(auth)

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /notes         → GET: list, POST: create
	// /notes/search  → GET: search (?q=)
	// /notes/{ref}   → GET, PUT, DELETE
	// /notes/{ref}/status → PUT
	mux.Handle("/notes", authed(http.HandlerFunc(s.handleNotes)))
	mux.Handle("/notes/", authed(http.HandlerFunc(s.handleNoteWithRef)))

	// /assistant       → POST: chat message
	// /assistant/reset → POST: forget the conversation
	// /assistant/state → GET: pending question and transcript size
	mux.Handle("/assistant", authed(http.HandlerFunc(s.handleAssistant)))
	mux.Handle("/assistant/reset", authed(http.HandlerFunc(s.handleAssistantReset)))
	mux.Handle("/assistant/state", authed(http.HandlerFunc(s.handleAssistantState)))

	return chainMiddlewares(mux, withRecover, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type noteRequest struct {
	Note string `json:"note"`
}

type statusRequest struct {
	Status *bool `json:"status"`
}

type noteResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Note    *domain.Note `json:"note,omitempty"`
}

type notesResponse struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Notes   []*domain.Note `json:"notes"`
}

type assistantRequest struct {
	Message string `json:"message"`
}

type assistantStateResponse struct {
	Success       bool                `json:"success"`
	RequiresInput bool                `json:"requiresInput"`
	Pending       domain.PendingState `json:"pending"`
	Turns         int                 `json:"turns"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /notes
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListNotes(w, r)
	case http.MethodPost:
		s.handleCreateNote(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /notes/search, /notes/{ref} or /notes/{ref}/status
func (s *Server) handleNoteWithRef(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/notes/"), "/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	ref := parts[0]

	if len(parts) == 1 {
		if ref == "search" {
			if r.Method != http.MethodGet {
				methodNotAllowed(w)
				return
			}
			s.handleSearchNotes(w, r)
			return
		}

		switch r.Method {
		case http.MethodGet:
			s.handleGetNote(w, r, ref)
		case http.MethodPut:
			s.handleUpdateNote(w, r, ref)
		case http.MethodDelete:
			s.handleDeleteNote(w, r, ref)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "status" {
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		s.handleUpdateStatus(w, r, ref)
		return
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Notes handlers
// ─────────────────────────────────────────────

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := s.notes.List(r.Context(), userFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, notesResponse{Success: true, Count: len(list), Notes: list})
}

func (s *Server) handleSearchNotes(w http.ResponseWriter, r *http.Request) {
	hits, err := s.notes.Search(r.Context(), userFromContext(r.Context()), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, notesResponse{Success: true, Count: len(hits), Notes: hits})
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	n, err := s.notes.Create(r.Context(), userFromContext(r.Context()), req.Note)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, noteResponse{Success: true, Message: "Note created successfully", Note: n})
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request, ref string) {
	n, err := s.notes.Get(r.Context(), userFromContext(r.Context()), ref)
	if err != nil {
		writeServiceError(w, r, err, "access")
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Success: true, Note: n})
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request, ref string) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	n, err := s.notes.UpdateText(r.Context(), userFromContext(r.Context()), ref, req.Note)
	if err != nil {
		writeServiceError(w, r, err, "update")
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Success: true, Message: "Note updated successfully", Note: n})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request, ref string) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Status == nil {
		badRequest(w, "status is required")
		return
	}

	n, err := s.notes.SetStatus(r.Context(), userFromContext(r.Context()), ref, *req.Status)
	if err != nil {
		writeServiceError(w, r, err, "update")
		return
	}

	msg := "Note marked as pending"
	if n.Completed {
		msg = "Note marked as completed"
	}
	writeJSON(w, http.StatusOK, noteResponse{Success: true, Message: msg, Note: n})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request, ref string) {
	n, err := s.notes.Delete(r.Context(), userFromContext(r.Context()), ref)
	if err != nil {
		writeServiceError(w, r, err, "delete")
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Success: true, Message: "Note deleted successfully", Note: n})
}

// ─────────────────────────────────────────────
// Assistant handlers
// ─────────────────────────────────────────────

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req assistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusOK, assistant.Reply{
			Success: false,
			Message: "Please provide a question or command.",
			Type:    assistant.TypeError,
		})
		return
	}

	// Assistant failures are reported in the reply body with a 200.
	reply := s.assistant.Resolve(r.Context(), userFromContext(r.Context()), req.Message)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleAssistantReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	s.assistant.Reset(userFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Conversation reset"})
}

func (s *Server) handleAssistantState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	st := s.assistant.State(userFromContext(r.Context()))
	writeJSON(w, http.StatusOK, assistantStateResponse{
		Success:       true,
		RequiresInput: st.Pending.Any(),
		Pending:       st.Pending,
		Turns:         len(st.Transcript),
	})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

// writeServiceError maps service errors to status codes. verb completes the
// not-found message ("... permission to <verb> it").
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, verb string) {
	switch {
	case domain.IsValidation(err):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		if verb == "" {
			verb = "access"
		}
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "Note not found or you don't have permission to " + verb + " it",
		})
	default:
		observability.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		internalError(w)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
