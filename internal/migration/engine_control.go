package migration

import (
	"context"
	"time"

	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/models"
)

// Pause asks the running migration to pause at the next key boundary.
func (e *Engine) Pause(ctx context.Context) error {
	if err := e.control.RequestPause(ctx); err != nil {
		return err
	}
	e.signal()
	return nil
}

// Resume lets a paused migration continue. It returns the checkpoint the
// migration resumes from, if any. While no run is active the checkpoint stays
// stored for the next Start. A running migration that is not paused is left
// alone.
func (e *Engine) Resume(ctx context.Context) (*models.MigrationResumeData, error) {
	e.mu.Lock()
	running := e.running
	e.autoPaused = false
	e.mu.Unlock()

	if !running {
		return e.control.ResumableCheckpoint(ctx)
	}
	if !e.control.IsPaused() {
		return nil, nil
	}

	data, err := e.control.RequestResume(ctx)
	if err != nil {
		return nil, err
	}
	e.signal()
	return data, nil
}

// Cancel stops the migration at the next key boundary.
func (e *Engine) Cancel(ctx context.Context, reason string) error {
	if err := e.control.RequestCancel(ctx, reason); err != nil {
		return err
	}
	e.signal()
	return nil
}

// SetHidden reports host window visibility. In pause mode hiding pauses the
// migration and showing resumes it, unless the pause was requested
// explicitly. In throttle mode keys are spaced by HiddenThrottleDelay while
// hidden.
func (e *Engine) SetHidden(ctx context.Context, hidden bool) {
	e.mu.Lock()
	e.hidden = hidden
	mode := e.cfg.HiddenMode
	running := e.running
	wasAutoPaused := e.autoPaused
	e.mu.Unlock()

	if mode != config.HiddenModePause || !running {
		return
	}

	switch {
	case hidden && !e.control.IsPaused():
		e.mu.Lock()
		e.autoPaused = true
		e.mu.Unlock()
		e.control.markPaused()
		e.logger.Info().Str("func", "*Engine.SetHidden").Msg("host hidden; migration paused")
	case !hidden && wasAutoPaused:
		e.mu.Lock()
		e.autoPaused = false
		e.mu.Unlock()
		if _, err := e.control.resume(ctx); err != nil {
			e.logger.Err(err).Str("func", "*Engine.SetHidden").Msg("error resuming migration")
		}
		e.logger.Info().Str("func", "*Engine.SetHidden").Msg("host visible; migration resumed")
	}
	e.signal()
}

func (e *Engine) throttled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hidden && e.cfg.HiddenMode == config.HiddenModeThrottle
}

// Phase returns the current phase.
func (e *Engine) Phase() models.MigrationPhase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Status returns a snapshot of the migration. The time remaining is the
// average of the last item durations times the items left.
func (e *Engine) Status() models.MigrationStatus {
	control := e.control.State()

	e.mu.Lock()
	defer e.mu.Unlock()

	status := models.MigrationStatus{
		Phase:          e.phase,
		ProcessedItems: e.processed,
		TotalItems:     e.total,
		ErrorCount:     e.errorCount,
	}

	switch {
	case e.total > 0:
		status.Progress = float64(e.processed) / float64(e.total) * 100
	case e.phase == models.PhaseCompleted:
		status.Progress = 100
	}

	if len(e.durations) > 0 && e.total > e.processed {
		var sum time.Duration
		for _, d := range e.durations {
			sum += d
		}
		avg := sum / time.Duration(len(e.durations))
		status.EstimatedTimeRemaining = avg * time.Duration(e.total-e.processed)
	}

	active := e.running && !e.phase.Terminal()
	status.CanPause = active && control.CanPause && e.phase == models.PhaseBackground && !control.IsPaused
	status.CanResume = control.CanResume || (e.phase == models.PhasePaused && control.IsPaused)
	status.CanCancel = active && control.CanCancel && !control.IsCancelling
	return status
}
