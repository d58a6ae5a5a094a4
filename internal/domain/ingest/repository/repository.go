// Package repository provides data access for ingested transaction stores.
package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dusabe/momo-tracker/internal/domain/ingest/classifier"
)

var (
	// ErrStoreProvisioning marks failures creating a category store.
	ErrStoreProvisioning = errors.New("store provisioning failed")
	// ErrStoreWrite marks failures writing a category batch, including
	// numeric conversion failures inside the batch.
	ErrStoreWrite = errors.New("store write failed")
)

// IngestJob records one document ingestion run.
type IngestJob struct {
	ID               uuid.UUID  `db:"id"`
	UserID           int64      `db:"user_id"`
	Status           string     `db:"status"` // "running", "succeeded", "partial", "failed"
	MessagesTotal    int        `db:"messages_total"`
	RowsWritten      int        `db:"rows_written"`
	CategoriesFailed int        `db:"categories_failed"`
	ErrorMessage     *string    `db:"error_message"`
	RequestedAt      time.Time  `db:"requested_at"`
	FinishedAt       *time.Time `db:"finished_at"`
}

// StoreRepository defines data access operations for ingestion.
type StoreRepository interface {
	// EnsureStore provisions the category store if it does not exist yet.
	// Idempotent and safe under concurrent first use.
	EnsureStore(ctx context.Context, store string) error

	// InsertBatch writes all records for one category as a single atomic
	// unit, stamping user_id, generating missing ids and converting numeric
	// fields. Input records are not mutated. Returns rows written.
	InsertBatch(ctx context.Context, store string, userID int64, records []*classifier.Transaction) (int, error)

	// Ingest jobs
	CreateIngestJob(ctx context.Context, job *IngestJob) error
	FinishIngestJob(ctx context.Context, id uuid.UUID, status string, rowsWritten, categoriesFailed int, errorMessage *string) error
}

var repeatedUnderscores = regexp.MustCompile(`_{2,}`)

// SanitizeStoreName reduces a category name to its durable storage identity:
// every non-alphanumeric rune becomes an underscore, the result is
// lower-cased, runs of underscores collapse and the ends are trimmed. The
// mapping is deterministic and idempotent, so repeated ingestion runs keep
// writing to the same store.
func SanitizeStoreName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r == '_' || ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else if 'A' <= r && r <= 'Z' {
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune('_')
		}
	}
	collapsed := repeatedUnderscores.ReplaceAllString(b.String(), "_")
	return strings.Trim(collapsed, "_")
}
