// Package history persists call records on behalf of the signaling hub. The
// hub triggers the writes; this package owns the storage.
package history

import (
	"errors"
	"log/slog"
	"time"

	"chatwire/internal/models"

	"gorm.io/gorm"
)

type Recorder struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRecorder(db *gorm.DB, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger}
}

// CallStarted creates the history row for a ringing call. Failures are
// logged, never surfaced: history must not break signaling.
func (r *Recorder) CallStarted(callID, callerID, calleeID, callType string, at time.Time) {
	rec := models.CallRecord{
		CallID:    callID,
		CallerID:  callerID,
		CalleeID:  calleeID,
		Type:      callType,
		Direction: "outgoing",
		StartedAt: at,
	}
	if err := r.db.Create(&rec).Error; err != nil {
		r.logger.Error("save call record", "call_id", callID, "error", err)
	}
}

// CallEnded finalizes the open row for callID with end time and duration.
// Idempotent: once finalized (or if the row never existed) this is a no-op.
func (r *Recorder) CallEnded(callID string, at time.Time) {
	var rec models.CallRecord
	err := r.db.Where("call_id = ? AND ended_at IS NULL", callID).
		Order("started_at DESC").
		First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Error("load call record", "call_id", callID, "error", err)
		}
		return
	}

	rec.EndedAt = &at
	rec.Duration = at.Sub(rec.StartedAt).Seconds()
	if rec.Duration < 0 {
		rec.Duration = 0
	}
	if err := r.db.Save(&rec).Error; err != nil {
		r.logger.Error("finalize call record", "call_id", callID, "error", err)
	}
}
