package http

import (
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/service"
)

// ActivityRecorder is told about every foreground API request.
type ActivityRecorder interface {
	Touch()
}

type Handler struct {
	services *service.Services
	activity ActivityRecorder

	logger *logger.Logger
}

// NewHandler builds the HTTP handler. activity may be nil.
func NewHandler(services *service.Services, activity ActivityRecorder, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		activity: activity,
		logger:   logger,
	}
}
