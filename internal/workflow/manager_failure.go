package workflow

import (
	"context"
	"errors"
	"strings"

	"fieldframe/internal/logging"
	"fieldframe/internal/queue"
	"fieldframe/internal/services"
	"fieldframe/internal/textutil"
)

func (m *Manager) handleStageFailure(ctx context.Context, stg pipelineStage, item *queue.Item, stageErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := logging.WithContext(ctx, base).With(logging.String("component", "workflow-manager"))

	message := failureMessage(stg.name, stageErr)

	switch {
	case services.IsRetryEligible(stageErr):
		// Authentication holds park the item at its stage entry status so it
		// is retried automatically once a session exists. No attempt is
		// consumed and the item is not failed.
		m.rollbackItem(item, stg.startStatus, message)
		logger.Warn("stage held awaiting authentication",
			logging.String("held_status", string(stg.startStatus)),
			logging.String("error_message", message),
			logging.String(logging.FieldEventType, "stage_hold"),
			logging.Error(stageErr),
		)

	case stg.startStatus == queue.StatusExtracted &&
		!services.IsTerminal(stageErr) &&
		item.UploadAttempts < m.cfg.Upload.MaxAttempts:
		// Publish retries re-enter the stage until the attempt ceiling;
		// files already uploaded are skipped on the next pass.
		m.rollbackItem(item, stg.startStatus, message)
		logger.Warn("publish failed, will retry",
			logging.Int("attempts", item.UploadAttempts),
			logging.Int("max_attempts", m.cfg.Upload.MaxAttempts),
			logging.String("error_message", message),
			logging.String(logging.FieldEventType, "stage_retry"),
			logging.Error(stageErr),
		)

	default:
		item.SetFailed(message)
		logger.Error("stage failed",
			logging.String("resolved_status", string(queue.StatusFailed)),
			logging.String("error_message", message),
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Error(stageErr),
		)
		if m.notifier != nil {
			title := textutil.DisplayTitle(item.ObjectLabel)
			if notifyErr := m.notifier.NotifyError(ctx, stageErr, stg.name+" "+title); notifyErr != nil {
				logger.Warn("failure notification failed", logging.Error(notifyErr))
			}
		}
	}

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastItem(item)
}

func (m *Manager) rollbackItem(item *queue.Item, status queue.Status, message string) {
	item.Status = status
	item.ErrorMessage = message
	item.ProgressPercent = 0
	item.ProgressMessage = message
	item.LastHeartbeat = nil
}

func failureMessage(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageName + " failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		return stageName + " failed"
	}
	return message
}
