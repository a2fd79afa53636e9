// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/migration"
	"github.com/MKhiriev/go-sync-engine/internal/queue"
	"github.com/MKhiriev/go-sync-engine/internal/service"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
)

var errorStatusMap = map[error]int{
	ErrInvalidJSON:                 http.StatusBadRequest,
	service.ErrInvalidDataProvided: http.StatusBadRequest,
	service.ErrNoKeysToEstimate:    http.StatusUnprocessableEntity,
	service.ErrMigrationRunning:    http.StatusConflict,
	queue.ErrOperationNotFound:     http.StatusNotFound,
	migration.ErrEngineRunning:     http.StatusConflict,
	migration.ErrPauseDisabled:     http.StatusForbidden,
	migration.ErrCancelDisabled:    http.StatusForbidden,
	migration.ErrResumeDisabled:    http.StatusForbidden,
}

var kindStatusMap = map[apperrors.Kind]int{
	apperrors.KindValidation:             http.StatusBadRequest,
	apperrors.KindNotFound:               http.StatusNotFound,
	apperrors.KindRateLimited:            http.StatusTooManyRequests,
	apperrors.KindQuotaExceeded:          http.StatusInsufficientStorage,
	apperrors.KindLockAcquisition:        http.StatusConflict,
	apperrors.KindRequiresUserResolution: http.StatusConflict,
	apperrors.KindAutoResolvableConflict: http.StatusConflict,
	apperrors.KindNetwork:                http.StatusBadGateway,
	apperrors.KindTimeout:                http.StatusGatewayTimeout,
	apperrors.KindCancelled:              http.StatusServiceUnavailable,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	if status, ok := kindStatusMap[apperrors.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError answers with the mapped status and a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	if kind := apperrors.KindOf(err); kind != apperrors.KindUnknown {
		resp.Kind = kind.String()
		resp.Field = apperrors.FieldOf(err)
	}
	utils.WriteJSON(w, resp, statusFromError(err))
}
