package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idhub/internal/authz"
	"idhub/internal/participant/models"
	"idhub/internal/participant/service"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/platform/httputil"
	"idhub/pkg/requestcontext"
)

// ParticipantHandler exposes the participant registry.
type ParticipantHandler struct {
	service *service.Service
	gate    *authz.Gate
	logger  *slog.Logger
}

func NewParticipantHandler(svc *service.Service, gate *authz.Gate, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{service: svc, gate: gate, logger: logger}
}

func (h *ParticipantHandler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Post("/participants", h.HandleCreate)
		r.Get("/participants", h.HandleList)
	})
	r.Get("/participants/{id}", h.HandleGet)
	r.Delete("/participants/{id}", h.HandleDelete)
	r.Post("/participants/{id}/token", h.HandleRegenerateToken)
}

type participantResponse struct {
	ID           string            `json:"id"`
	DID          string            `json:"did"`
	State        string            `json:"state"`
	Roles        []string          `json:"roles"`
	Properties   map[string]string `json:"properties,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastModified time.Time         `json:"last_modified"`
}

type participantCreateResponse struct {
	Participant participantResponse `json:"participant"`
	// APIToken is returned exactly once at creation.
	APIToken string `json:"api_token"`
}

func toParticipantResponse(p models.ParticipantContext) participantResponse {
	return participantResponse{
		ID:           p.ID.String(),
		DID:          p.DID,
		State:        string(p.State),
		Roles:        p.Roles,
		Properties:   p.Properties,
		CreatedAt:    p.CreatedAt,
		LastModified: p.LastModified,
	}
}

func (h *ParticipantHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	manifest, ok := httputil.DecodeAndPrepare[models.Manifest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	participant, token, err := h.service.Create(ctx, *manifest)
	if err != nil {
		h.logger.ErrorContext(ctx, "create participant failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, participantCreateResponse{
		Participant: toParticipantResponse(participant),
		APIToken:    token,
	})
}

func (h *ParticipantHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	participants, err := h.service.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		out = append(out, toParticipantResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// participantFromPath parses and authorizes the {id} path parameter. A failed
// authorization is written as not-found.
func (h *ParticipantHandler) participantFromPath(w http.ResponseWriter, r *http.Request) (id.ParticipantID, bool) {
	participantID, err := id.ParseParticipantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid participant id"))
		return "", false
	}
	if err := h.gate.Authorize(r.Context(), participantID.String(), authz.KindParticipant); err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return participantID, true
}

func (h *ParticipantHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	participantID, ok := h.participantFromPath(w, r)
	if !ok {
		return
	}
	participant, err := h.service.Get(ctx, participantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toParticipantResponse(participant))
}

func (h *ParticipantHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	participantID, ok := h.participantFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, participantID); err != nil {
		h.logger.ErrorContext(ctx, "delete participant failed",
			"error", err, "request_id", requestID, "participant_id", participantID)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ParticipantHandler) HandleRegenerateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	participantID, ok := h.participantFromPath(w, r)
	if !ok {
		return
	}
	token, err := h.service.RegenerateToken(ctx, participantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"api_token": token})
}
