package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idhub/internal/authz"
	"idhub/internal/credential/query"
	participantsvc "idhub/internal/participant/service"
	"idhub/internal/presentation/models"
	presentationsvc "idhub/internal/presentation/service"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/platform/httputil"
	"idhub/pkg/requestcontext"
)

// presentationQueryRequest extends the protocol message with an explicit
// audience. When absent, the authenticated caller is the audience.
type presentationQueryRequest struct {
	models.PresentationQueryMessage
	Audience string `json:"audience,omitempty"`
}

// PresentationHandler serves presentation queries: resolve the participant's
// matching credentials, then dispatch generation.
type PresentationHandler struct {
	participants  *participantsvc.Service
	resolver      *query.Resolver
	presentations *presentationsvc.Service
	gate          *authz.Gate
	logger        *slog.Logger
}

func NewPresentationHandler(
	participants *participantsvc.Service,
	resolver *query.Resolver,
	presentations *presentationsvc.Service,
	gate *authz.Gate,
	logger *slog.Logger,
) *PresentationHandler {
	return &PresentationHandler{
		participants:  participants,
		resolver:      resolver,
		presentations: presentations,
		gate:          gate,
		logger:        logger,
	}
}

func (h *PresentationHandler) Register(r chi.Router) {
	r.Post("/participants/{id}/presentations/query", h.HandleQuery)
}

func (h *PresentationHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	participantID, err := id.ParseParticipantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid participant id"))
		return
	}
	if err := h.gate.Authorize(ctx, participantID.String(), authz.KindParticipant); err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeJSON[presentationQueryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	constraints, err := query.ParseScopes(req.Scope)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	participant, err := h.participants.Get(ctx, participantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	credentials, err := h.resolver.Resolve(ctx, participantID, constraints)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential resolution failed",
			"error", err, "request_id", requestID, "participant_id", participantID)
		httputil.WriteError(w, err)
		return
	}

	audience := req.Audience
	if audience == "" {
		audience = requestcontext.Principal(ctx).ID
	}

	resp, err := h.presentations.CreatePresentation(ctx, presentationsvc.Request{
		ParticipantID:          participantID,
		HolderDID:              participant.DID,
		Audience:               audience,
		PresentationDefinition: req.PresentationDefinition,
		Credentials:            credentials,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "presentation generation failed",
			"error", err, "request_id", requestID, "participant_id", participantID)
		httputil.WriteError(w, err)
		return
	}

	artifacts := make([]interface{}, 0, len(resp.Artifacts))
	for _, artifact := range resp.Artifacts {
		artifacts = append(artifacts, artifact.Value())
	}
	httputil.WriteJSON(w, http.StatusOK, models.PresentationResponseMessage{Presentation: artifacts})
}
