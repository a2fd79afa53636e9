package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
)

type operationsResponse struct {
	Operations []models.SyncOperation `json:"operations"`
	Length     int                    `json:"length"`
}

func (h *Handler) enqueueOperation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var op models.SyncOperation
	if err := json.NewDecoder(r.Body).Decode(&op); err != nil {
		log.Err(err).Str("func", "*Handler.enqueueOperation").Msg("invalid JSON was passed")
		writeError(w, ErrInvalidJSON)
		return
	}

	stored, err := h.services.SyncService.Enqueue(r.Context(), op)
	if err != nil {
		log.Err(err).Str("func", "*Handler.enqueueOperation").Msg("error queueing sync operation")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, stored, http.StatusAccepted)
}

func (h *Handler) listOperations(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	ops, err := h.services.SyncService.Operations(r.Context())
	if err != nil {
		log.Err(err).Str("func", "*Handler.listOperations").Msg("error listing sync operations")
		writeError(w, err)
		return
	}
	if ops == nil {
		ops = []models.SyncOperation{}
	}

	utils.WriteJSON(w, operationsResponse{Operations: ops, Length: len(ops)}, http.StatusOK)
}

func (h *Handler) retryOperation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	id := chi.URLParam(r, "id")

	if err := h.services.SyncService.Retry(r.Context(), id); err != nil {
		log.Err(err).Str("func", "*Handler.retryOperation").Str("id", id).Msg("error retrying sync operation")
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSyncStats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	stats, err := h.services.SyncService.Stats(r.Context())
	if err != nil {
		log.Err(err).Str("func", "*Handler.getSyncStats").Msg("error reading sync queue stats")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, stats, http.StatusOK)
}

func (h *Handler) drainQueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	report, err := h.services.SyncService.Drain(r.Context())
	if err != nil {
		log.Err(err).Str("func", "*Handler.drainQueue").Msg("error draining sync queue")
		writeError(w, err)
		return
	}

	utils.WriteJSON(w, report, http.StatusOK)
}
