package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
)

type cancelRequest struct {
	Reason string `json:"reason"`
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

type keysRequest struct {
	Keys []string `json:"keys"`
}

type resumeResponse struct {
	ResumeData *models.MigrationResumeData `json:"resumeData"`
}

type resultResponse struct {
	Result *models.MigrationResult `json:"result"`
	Error  string                  `json:"error,omitempty"`
}

func (h *Handler) getMigrationStatus(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.services.MigrationService.Status(r.Context()), http.StatusOK)
}

func (h *Handler) getMigrationState(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.services.MigrationService.State(r.Context()), http.StatusOK)
}

func (h *Handler) getMigrationResult(w http.ResponseWriter, r *http.Request) {
	result, errText := h.services.MigrationService.LastResult(r.Context())
	utils.WriteJSON(w, resultResponse{Result: result, Error: errText}, http.StatusOK)
}

func (h *Handler) startMigration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	if err := h.services.MigrationService.Start(r.Context()); err != nil {
		log.Err(err).Str("func", "*Handler.startMigration").Msg("error starting migration")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, h.services.MigrationService.Status(r.Context()), http.StatusAccepted)
}

func (h *Handler) pauseMigration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	if err := h.services.MigrationService.Pause(r.Context()); err != nil {
		log.Err(err).Str("func", "*Handler.pauseMigration").Msg("error pausing migration")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, h.services.MigrationService.State(r.Context()), http.StatusOK)
}

func (h *Handler) resumeMigration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	data, err := h.services.MigrationService.Resume(r.Context())
	if err != nil {
		log.Err(err).Str("func", "*Handler.resumeMigration").Msg("error resuming migration")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, resumeResponse{ResumeData: data}, http.StatusOK)
}

func (h *Handler) cancelMigration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var req cancelRequest
	if err := decodeOptional(r, &req); err != nil {
		log.Err(err).Str("func", "*Handler.cancelMigration").Msg("invalid JSON was passed")
		writeError(w, ErrInvalidJSON)
		return
	}

	if err := h.services.MigrationService.Cancel(r.Context(), req.Reason); err != nil {
		log.Err(err).Str("func", "*Handler.cancelMigration").Msg("error cancelling migration")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, h.services.MigrationService.State(r.Context()), http.StatusOK)
}

func (h *Handler) setVisibility(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Str("func", "*Handler.setVisibility").Msg("invalid JSON was passed")
		writeError(w, ErrInvalidJSON)
		return
	}

	h.services.MigrationService.SetHidden(r.Context(), req.Hidden)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) estimateMigration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var req keysRequest
	if err := decodeOptional(r, &req); err != nil {
		log.Err(err).Str("func", "*Handler.estimateMigration").Msg("invalid JSON was passed")
		writeError(w, ErrInvalidJSON)
		return
	}

	estimation, err := h.services.MigrationService.Estimate(r.Context(), req.Keys)
	if err != nil {
		log.Err(err).Str("func", "*Handler.estimateMigration").Msg("error estimating migration")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, estimation, http.StatusOK)
}

func (h *Handler) previewMigration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var req keysRequest
	if err := decodeOptional(r, &req); err != nil {
		log.Err(err).Str("func", "*Handler.previewMigration").Msg("invalid JSON was passed")
		writeError(w, ErrInvalidJSON)
		return
	}

	preview, err := h.services.MigrationService.Preview(r.Context(), req.Keys)
	if err != nil {
		log.Err(err).Str("func", "*Handler.previewMigration").Msg("error previewing migration")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, preview, http.StatusOK)
}

// decodeOptional decodes a JSON body into v; an empty body leaves v as is.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
