package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idhub/internal/authz"
	"idhub/internal/credential/models"
	"idhub/internal/credential/service"
	"idhub/internal/credential/store"
	id "idhub/pkg/domain"
	dErrors "idhub/pkg/domain-errors"
	"idhub/pkg/platform/httputil"
	"idhub/pkg/requestcontext"
)

// CredentialHandler exposes credential management: storage on issuance
// delivery, lookup, tenant-scoped queries and status signals.
type CredentialHandler struct {
	service *service.Service
	gate    *authz.Gate
	logger  *slog.Logger
}

func NewCredentialHandler(svc *service.Service, gate *authz.Gate, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{service: svc, gate: gate, logger: logger}
}

func (h *CredentialHandler) Register(r chi.Router) {
	r.Post("/participants/{id}/credentials", h.HandleCreate)
	r.Post("/participants/{id}/credentials/query", h.HandleQuery)
	r.Get("/credentials/{credentialId}", h.HandleGet)
	r.Post("/credentials/{credentialId}/status", h.HandleUpdateStatus)
}

type createCredentialRequest struct {
	IssuerID      string        `json:"issuer_id"`
	HolderID      string        `json:"holder_id"`
	Format        string        `json:"format"`
	Status        string        `json:"status,omitempty"`
	RawCredential string        `json:"raw_credential"`
	Claims        models.Claims `json:"claims,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

type predicateRequest struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value string `json:"value"`
}

type queryCredentialsRequest struct {
	Predicates []predicateRequest `json:"predicates,omitempty"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

type credentialResponse struct {
	ID            string        `json:"id"`
	ParticipantID string        `json:"participant_id"`
	IssuerID      string        `json:"issuer_id"`
	HolderID      string        `json:"holder_id"`
	Status        string        `json:"status"`
	Format        string        `json:"format"`
	RawCredential string        `json:"raw_credential,omitempty"`
	Claims        models.Claims `json:"claims,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	LastUpdated   time.Time     `json:"last_status_update"`
}

func toCredentialResponse(res models.VerifiableCredentialResource) credentialResponse {
	out := credentialResponse{
		ID:            res.ID.String(),
		ParticipantID: res.ParticipantContextID.String(),
		IssuerID:      res.IssuerID,
		HolderID:      res.HolderID,
		Status:        string(res.Status),
		Format:        res.Format.String(),
		RawCredential: res.RawCredential,
		Claims:        res.StructuredCredential,
		LastUpdated:   res.TimeOfLastStatusUpdate,
	}
	if !res.ExpiresAt.IsZero() {
		expiresAt := res.ExpiresAt
		out.ExpiresAt = &expiresAt
	}
	return out
}

func (h *CredentialHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	req, ok := httputil.DecodeJSON[createCredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	format, err := models.ParseFormat(req.Format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cmd := service.CreateCommand{
		ParticipantID: participantID,
		IssuerID:      req.IssuerID,
		HolderID:      req.HolderID,
		Format:        format,
		RawCredential: req.RawCredential,
		Claims:        req.Claims,
	}
	if req.Status != "" {
		status, err := models.ParseVcStatus(req.Status)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		cmd.Status = status
	}
	if req.ExpiresAt != nil {
		cmd.ExpiresAt = *req.ExpiresAt
	}

	res, err := h.service.Create(ctx, cmd)
	if err != nil {
		h.logger.ErrorContext(ctx, "create credential failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCredentialResponse(res))
}

func (h *CredentialHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
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

	req, ok := httputil.DecodeJSON[queryCredentialsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	filter := store.Filter{Participant: participantID}
	for _, p := range req.Predicates {
		filter.Predicates = append(filter.Predicates, store.Predicate{
			Field: p.Field,
			Op:    store.Op(p.Op),
			Value: p.Value,
		})
	}

	results, err := h.service.Query(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]credentialResponse, 0, len(results))
	for _, res := range results {
		out = append(out, toCredentialResponse(res))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// credentialFromPath parses and authorizes the {credentialId} path parameter.
func (h *CredentialHandler) credentialFromPath(w http.ResponseWriter, r *http.Request) (id.CredentialID, bool) {
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid credential id"))
		return "", false
	}
	if err := h.gate.Authorize(r.Context(), credentialID.String(), authz.KindCredential); err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return credentialID, true
}

func (h *CredentialHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, ok := h.credentialFromPath(w, r)
	if !ok {
		return
	}
	res, err := h.service.Get(ctx, credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(res))
}

func (h *CredentialHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	credentialID, ok := h.credentialFromPath(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeJSON[statusUpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	target, err := models.ParseVcStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.UpdateStatus(ctx, credentialID, target)
	if err != nil {
		h.logger.WarnContext(ctx, "status update failed",
			"error", err, "request_id", requestID, "credential_id", credentialID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(res))
}
