package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teemow/todoagent/internal/agent"
	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/auth"
	"github.com/teemow/todoagent/internal/chat"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/server"
)

type agentRequest struct {
	Messages  json.RawMessage `json:"messages"`
	SessionID string          `json:"sessionId"`
}

type inboundMessage struct {
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	ToolCalls  []openai.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
}

type agentResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// handleAgent runs one agent turn. Without a sessionId the request carries
// the whole conversation. With a sessionId the stored history is replayed
// and only the last request message, which must come from the user, is new.
func (h *Handler) handleAgent(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Agent == nil {
		server.WriteErrorMessage(w, http.StatusInternalServerError, "Falta OPENROUTER_API_KEY")
		return
	}
	ctx := r.Context()
	owner, err := auth.OwnerFromContext(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req agentRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	inbound, err := parseMessages(req.Messages)
	if err != nil {
		h.writeError(w, err)
		return
	}

	conversation := toModelMessages(inbound)
	if len(conversation) == 0 {
		h.writeError(w, errBadFormat)
		return
	}
	persist := req.SessionID != "" && h.sc.Chat() != nil
	var fresh []openai.ChatCompletionMessage
	if persist {
		last := inbound[len(inbound)-1]
		if last.Role != openai.ChatMessageRoleUser {
			h.writeError(w, errBadFormat)
			return
		}
		history, err := h.sc.Chat().List(ctx, owner, req.SessionID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		fresh = conversation[len(conversation)-1:]
		conversation = append(agent.FromHistory(history), fresh...)
	}

	result, err := h.cfg.Agent.Run(ctx, conversation)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if persist {
		msgs := agent.ToHistory(append(fresh, result.Transcript...))
		if err := h.sc.Chat().Append(ctx, owner, req.SessionID, msgs...); err != nil {
			h.sc.Logger().Error("failed to persist chat history",
				logging.Owner(owner), logging.Session(req.SessionID), logging.Err(err))
		}
	}

	server.WriteJSON(w, http.StatusOK, agentResponse{Message: result.Message, SessionID: req.SessionID})
}

// parseMessages requires a non-empty array of conversation messages. Tool
// replies must name the call they answer.
func parseMessages(raw json.RawMessage) ([]inboundMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errBadFormat
	}
	var msgs []inboundMessage
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return nil, errBadFormat
	}
	if len(msgs) == 0 {
		return nil, errBadFormat
	}
	for _, m := range msgs {
		switch m.Role {
		case openai.ChatMessageRoleUser, openai.ChatMessageRoleAssistant, openai.ChatMessageRoleSystem:
		case openai.ChatMessageRoleTool:
			if m.ToolCallID == "" {
				return nil, errBadFormat
			}
		default:
			return nil, errBadFormat
		}
	}
	return msgs, nil
}

// toModelMessages converts the request conversation. Client system messages
// are dropped; the agent always sends its own system prompt.
func toModelMessages(in []inboundMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for _, m := range in {
		if m.Role == openai.ChatMessageRoleSystem {
			continue
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
		})
	}
	return out
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	store, owner, session, ok := h.historyRequest(w, r)
	if !ok {
		return
	}
	msgs, err := store.List(r.Context(), owner, session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"sessionId": session, "messages": msgs})
}

func (h *Handler) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	store, owner, session, ok := h.historyRequest(w, r)
	if !ok {
		return
	}
	n, err := store.DeleteSession(r.Context(), owner, session)
	if err != nil {
		h.writeError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (h *Handler) historyRequest(w http.ResponseWriter, r *http.Request) (*chat.Store, string, string, bool) {
	owner, err := auth.OwnerFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return nil, "", "", false
	}
	store := h.sc.Chat()
	if store == nil {
		h.writeError(w, apperrors.NotFound("Historial no disponible"))
		return nil, "", "", false
	}
	session := r.URL.Query().Get("sessionId")
	if session == "" {
		h.writeError(w, apperrors.Validation("sessionId", "sessionId es requerido"))
		return nil, "", "", false
	}
	return store, owner, session, true
}
