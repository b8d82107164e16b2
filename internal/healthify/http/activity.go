package http

import (
	"net/http"

	"github.com/aussiebroadwan/healthify/internal/healthify/service"
	"github.com/aussiebroadwan/healthify/pkg/httpx"
)

type ActivityHandler struct {
	ActivityService *service.ActivityService
}

// HandleIngest stores device samples.
//
//	@Summary		Ingest device samples
//	@Description	Kinds are steps and active_energy_kcal. A missing recorded_at means now. Refused until the user authorized device data.
//	@Tags			Activity
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SamplesRequest	true	"Samples"
//	@Success		200		{object}	SamplesResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid sample"
//	@Failure		401		{object}	httpx.ErrorResponse	"Not signed in"
//	@Failure		403		{object}	httpx.ErrorResponse	"Device data not authorized"
//	@Router			/v1/activity/samples [post].
func (h *ActivityHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req SamplesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if len(req.Samples) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "samples must not be empty")
		return
	}

	samples := make([]service.Sample, len(req.Samples))
	for i, s := range req.Samples {
		samples[i] = service.Sample{Kind: s.Kind, Value: s.Value, RecordedAt: s.RecordedAt}
	}

	n, err := h.ActivityService.Ingest(r.Context(), userID(r), samples)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, SamplesResponse{Accepted: n})
}

// HandleSetAuthorization records whether device data may be used.
//
//	@Summary		Set device data authorization
//	@Tags			Activity
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AuthorizationRequest	true	"Authorization"
//	@Success		200		{object}	AuthorizationResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid body"
//	@Failure		401		{object}	httpx.ErrorResponse	"Not signed in"
//	@Router			/v1/activity/authorization [put].
func (h *ActivityHandler) HandleSetAuthorization(w http.ResponseWriter, r *http.Request) {
	var req AuthorizationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.ActivityService.SetAuthorization(r.Context(), userID(r), req.Authorized); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, AuthorizationResponse{Authorized: req.Authorized})
}
