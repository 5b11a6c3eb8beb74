// internal/dialog/handler.go
package dialog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// TurnRequest is the wire form of one conversation turn.
type TurnRequest struct {
	UserID  string            `json:"user_id" validate:"required"`
	Intent  string            `json:"intent" validate:"required"`
	Slots   map[string]string `json:"slots"`
	Session map[string]any    `json:"session"`
}

// TurnResponse mirrors Response for the wire.
type TurnResponse struct {
	Speech     string         `json:"speech"`
	Reprompt   string         `json:"reprompt,omitempty"`
	Session    map[string]any `json:"session"`
	EndSession bool           `json:"end_session"`
}

type Handler struct {
	engine   *Engine
	validate *validator.Validate
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{
		engine:   engine,
		validate: validator.New(),
	}
}

// Routes mounts the conversation endpoint on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/turns", h.HandleTurn)
	return r
}

func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := h.engine.HandleTurn(r.Context(), req.UserID, Turn{
		Intent:  req.Intent,
		Slots:   req.Slots,
		Session: req.Session,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(TurnResponse{
		Speech:     resp.Speech,
		Reprompt:   resp.Reprompt,
		Session:    resp.Session,
		EndSession: resp.EndSession,
	})
}
