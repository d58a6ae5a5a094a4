// Package service provides the ingestion orchestration logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dusabe/momo-tracker/internal/domain/ingest/classifier"
	"github.com/dusabe/momo-tracker/internal/domain/ingest/extractor"
	"github.com/dusabe/momo-tracker/internal/domain/ingest/repository"
	"github.com/dusabe/momo-tracker/pkg/observability"
)

// CategoryOutcome reports what happened to one category's batch. Err is nil
// on success and wraps ErrStoreProvisioning or ErrStoreWrite otherwise, so a
// caller can retry just the failed category.
type CategoryOutcome struct {
	Category    string
	Store       string
	RowsWritten int
	Err         error
}

// Result summarizes one document ingestion run.
type Result struct {
	JobID         uuid.UUID
	MessagesTotal int
	RowsWritten   int
	Outcomes      []CategoryOutcome
}

// Failed returns the outcomes that ended in an error.
func (r *Result) Failed() []CategoryOutcome {
	var failed []CategoryOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// IngestService runs extract → classify → persist for uploaded documents.
type IngestService struct {
	repo   repository.StoreRepository
	logger *slog.Logger
	tracer trace.Tracer
}

// NewIngestService creates a new ingest service.
func NewIngestService(repo repository.StoreRepository, logger *slog.Logger) *IngestService {
	return &IngestService{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("momo-tracker/ingest"),
	}
}

// Classify runs extraction and classification without persisting anything,
// for callers that want a dry run of the rule catalog.
func (s *IngestService) Classify(data []byte) (classifier.Grouped, error) {
	messages, err := extractor.Parse(data)
	if err != nil {
		return nil, err
	}
	return classifier.Classify(messages), nil
}

// IngestDocument parses one SMS backup document, classifies every message
// and persists each category's batch independently: a category that fails to
// provision or write never blocks the others. The returned Result lists rows
// written or the error per category; only an unparseable document is a
// whole-call error.
func (s *IngestService) IngestDocument(ctx context.Context, userID int64, data []byte) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ingest.document")
	span.SetAttributes(attribute.Int64("ingest.user_id", userID))
	defer span.End()

	messages, err := extractor.Parse(data)
	if err != nil {
		observability.DocumentsTotal.WithLabelValues("rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("ingest.messages", len(messages)))

	grouped := classifier.Classify(messages)

	job := &repository.IngestJob{
		UserID:        userID,
		Status:        "running",
		MessagesTotal: len(messages),
	}
	jobTracked := true
	if err := s.repo.CreateIngestJob(ctx, job); err != nil {
		s.logger.Warn("failed to create ingest job", "error", err)
		jobTracked = false
	}

	result := &Result{
		JobID:         job.ID,
		MessagesTotal: len(messages),
	}

	// Catalog order, unprocessed bucket last. Deterministic so repeated runs
	// touch the stores in the same order.
	for _, category := range append(classifier.Categories(), classifier.Unprocessed) {
		records := grouped[category]
		outcome := s.ingestCategory(ctx, category, userID, records)
		result.Outcomes = append(result.Outcomes, outcome)
		result.RowsWritten += outcome.RowsWritten
	}

	failed := result.Failed()
	status := "succeeded"
	var errorMessage *string
	if len(failed) > 0 {
		status = "partial"
		if result.RowsWritten == 0 {
			status = "failed"
		}
		msgs := make([]string, len(failed))
		for i, o := range failed {
			msgs[i] = fmt.Sprintf("%s: %v", o.Store, o.Err)
		}
		joined := strings.Join(msgs, "; ")
		errorMessage = &joined
	}

	if jobTracked {
		if err := s.repo.FinishIngestJob(ctx, job.ID, status, result.RowsWritten, len(failed), errorMessage); err != nil {
			s.logger.Warn("failed to finish ingest job", "error", err)
		}
	}

	observability.DocumentsTotal.WithLabelValues(status).Inc()
	observability.IngestDuration.Observe(time.Since(start).Seconds())
	if len(failed) > 0 {
		span.SetStatus(codes.Error, *errorMessage)
	} else {
		span.SetStatus(codes.Ok, "ok")
	}

	s.logger.Info("document ingested",
		"user_id", userID,
		"messages", len(messages),
		"rows_written", result.RowsWritten,
		"categories_failed", len(failed),
		"status", status,
	)

	return result, nil
}

// ingestCategory provisions the category's store and writes its batch. Both
// steps are isolated per category; the error carries the failing stage.
func (s *IngestService) ingestCategory(ctx context.Context, category string, userID int64, records []*classifier.Transaction) CategoryOutcome {
	store := repository.SanitizeStoreName(category)
	outcome := CategoryOutcome{Category: category, Store: store}

	if err := s.repo.EnsureStore(ctx, store); err != nil {
		outcome.Err = err
		observability.CategoryFailures.WithLabelValues(store, failureReason(err)).Inc()
		s.logger.Error("failed to provision store", "store", store, "error", err)
		return outcome
	}

	written, err := s.repo.InsertBatch(ctx, store, userID, records)
	if err != nil {
		outcome.Err = err
		observability.CategoryFailures.WithLabelValues(store, failureReason(err)).Inc()
		s.logger.Error("failed to write batch", "store", store, "rows", len(records), "error", err)
		return outcome
	}

	outcome.RowsWritten = written
	if written > 0 {
		observability.RowsWritten.WithLabelValues(store).Add(float64(written))
	}
	return outcome
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrStoreProvisioning):
		return "provision"
	case errors.Is(err, repository.ErrStoreWrite):
		return "write"
	default:
		return "unknown"
	}
}
