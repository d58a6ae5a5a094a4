package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dusabe/momo-tracker/internal/domain/ingest/classifier"
)

// PGXQuerier is the slice of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStoreRepository implements StoreRepository using PostgreSQL.
type PostgresStoreRepository struct {
	db PGXQuerier
}

// NewPostgresStoreRepository creates a new PostgreSQL-backed store repository.
func NewPostgresStoreRepository(db PGXQuerier) *PostgresStoreRepository {
	return &PostgresStoreRepository{db: db}
}

// Every category store shares this column set; the category only selects
// which store receives the row. Absent fields are written as SQL NULL.
const createStoreQuery = `
	CREATE TABLE IF NOT EXISTS %s (
		id varchar(36) PRIMARY KEY,
		date timestamp,
		tra_type varchar(255),
		new_balance double precision,
		transaction_id varchar(255),
		receiver_name varchar(255),
		fee double precision,
		amount double precision,
		agent_number varchar(255),
		sender_number varchar(255),
		receiver_number varchar(255),
		sender_name varchar(255),
		third_party_name varchar(255),
		user_id bigint NOT NULL
	)
`

var storeColumns = []string{
	"id", "date", "tra_type", "new_balance", "transaction_id",
	"receiver_name", "fee", "amount", "agent_number", "sender_number",
	"receiver_number", "sender_name", "third_party_name", "user_id",
}

const (
	createIngestJobQuery = `
		INSERT INTO ingest_jobs (id, user_id, status, messages_total)
		VALUES ($1, $2, $3, $4)
	`
	finishIngestJobQuery = `
		UPDATE ingest_jobs SET
			status = $2, rows_written = $3, categories_failed = $4,
			error_message = $5, finished_at = NOW()
		WHERE id = $1
	`
)

// EnsureStore creates the store if absent. Two callers racing on the same
// first use can both pass IF NOT EXISTS and one of them loses on the catalog
// unique index; that duplicate error counts as success.
func (r *PostgresStoreRepository) EnsureStore(ctx context.Context, store string) error {
	query := fmt.Sprintf(createStoreQuery, pgx.Identifier{store}.Sanitize())
	if _, err := r.db.Exec(ctx, query); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "42P07" || pgErr.Code == "23505") {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrStoreProvisioning, store, err)
	}
	return nil
}

// InsertBatch writes one category's records inside a single transaction via
// COPY: either every row commits or none does. The records themselves are
// left untouched; ids, the user stamp and numeric conversions happen on the
// row values only.
func (r *PostgresStoreRepository) InsertBatch(ctx context.Context, store string, userID int64, records []*classifier.Transaction) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrStoreWrite, store, err)
	}
	defer tx.Rollback(ctx)

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{store},
		storeColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			return buildRow(records[i], userID)
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrStoreWrite, store, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrStoreWrite, store, err)
	}

	return int(copied), nil
}

// CreateIngestJob records the start of a document ingestion run.
func (r *PostgresStoreRepository) CreateIngestJob(ctx context.Context, job *IngestJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if _, err := r.db.Exec(ctx, createIngestJobQuery, job.ID, job.UserID, job.Status, job.MessagesTotal); err != nil {
		return fmt.Errorf("failed to create ingest job: %w", err)
	}
	return nil
}

// FinishIngestJob closes out an ingestion run with its outcome counts.
func (r *PostgresStoreRepository) FinishIngestJob(ctx context.Context, id uuid.UUID, status string, rowsWritten, categoriesFailed int, errorMessage *string) error {
	if _, err := r.db.Exec(ctx, finishIngestJobQuery, id, status, rowsWritten, categoriesFailed, errorMessage); err != nil {
		return fmt.Errorf("failed to finish ingest job: %w", err)
	}
	return nil
}

// buildRow copies a record into store column order, stamping user_id,
// generating an id when absent and converting numeric fields.
func buildRow(t *classifier.Transaction, userID int64) ([]any, error) {
	newBalance, err := normalizeDecimal(t.NewBalance)
	if err != nil {
		return nil, err
	}
	fee, err := normalizeDecimal(t.Fee)
	if err != nil {
		return nil, err
	}
	amount, err := normalizeDecimal(t.Amount)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if t.ID != nil {
		id = *t.ID
	}

	return []any{
		id,
		t.Date,
		t.Category,
		newBalance,
		t.TransactionID,
		t.ReceiverName,
		fee,
		amount,
		t.AgentNumber,
		t.SenderNumber,
		t.ReceiverNumber,
		t.SenderName,
		t.ThirdPartyName,
		userID,
	}, nil
}

// normalizeDecimal turns a digit-grouped string into a float. A nil input or
// one with no digits at all stays NULL; a value that carries digits but does
// not convert is an error that aborts the whole category batch.
func normalizeDecimal(raw *string) (*float64, error) {
	if raw == nil {
		return nil, nil
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(*raw), ",", "")
	if !strings.ContainsAny(cleaned, "0123456789") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal quantity %q", *raw)
	}
	return &v, nil
}
