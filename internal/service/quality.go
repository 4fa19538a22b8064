package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/canonical"
	"github.com/spec-kit/complaint-service/internal/events"
)

// QualityRecorder counts data quality issues; implemented by observability.Metrics.
type QualityRecorder interface {
	RecordDataQuality(entity, code string)
}

// DataQualityReporter is the channel through which normalization issues leave the core.
// Each report is logged, counted and published as an event.
type DataQualityReporter struct {
	logger     *zap.Logger
	metrics    QualityRecorder
	dispatcher events.Dispatcher
}

// NewDataQualityReporter builds a reporter. metrics and dispatcher may be nil.
func NewDataQualityReporter(logger *zap.Logger, metrics QualityRecorder, dispatcher events.Dispatcher) *DataQualityReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataQualityReporter{logger: logger, metrics: metrics, dispatcher: dispatcher}
}

// Report publishes issues found on one record. Empty issue lists are ignored.
func (r *DataQualityReporter) Report(ctx context.Context, entity, id string, issues []canonical.Issue) {
	if r == nil || len(issues) == 0 {
		return
	}

	payload := events.DataQualityPayload{Entity: entity, Issues: make([]events.DataQualityIssue, 0, len(issues))}
	codes := make([]string, 0, len(issues))
	for _, issue := range issues {
		payload.Issues = append(payload.Issues, events.DataQualityIssue{Field: issue.Field, Code: issue.Code})
		codes = append(codes, issue.Code)
		if r.metrics != nil {
			r.metrics.RecordDataQuality(entity, issue.Code)
		}
	}

	r.logger.Warn("data quality issues in record",
		zap.String("entity", entity),
		zap.String("record_id", id),
		zap.Strings("codes", codes),
	)

	if r.dispatcher != nil {
		event := events.New(events.EventDataQualityDetected, id, events.Actor{}, time.Now(), payload)
		if err := r.dispatcher.Publish(ctx, event); err != nil {
			r.logger.Warn("data quality event handler failed", zap.Error(err))
		}
	}
}
