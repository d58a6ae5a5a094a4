package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusabe/momo-tracker/internal/domain/ingest/classifier"
	"github.com/dusabe/momo-tracker/internal/domain/ingest/extractor"
	"github.com/dusabe/momo-tracker/internal/domain/ingest/repository"
)

// fakeRepo captures repository calls so isolation policy can be asserted
// without a database.
type fakeRepo struct {
	ensureErr map[string]error
	insertErr map[string]error

	ensured  []string
	inserted map[string][]*classifier.Transaction
	userIDs  map[string]int64

	createJobErr error
	createdJob   *repository.IngestJob

	finishCalled bool
	finishStatus string
	finishRows   int
	finishFailed int
	finishMsg    *string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		ensureErr: map[string]error{},
		insertErr: map[string]error{},
		inserted:  map[string][]*classifier.Transaction{},
		userIDs:   map[string]int64{},
	}
}

func (f *fakeRepo) EnsureStore(_ context.Context, store string) error {
	f.ensured = append(f.ensured, store)
	if err := f.ensureErr[store]; err != nil {
		return err
	}
	return nil
}

func (f *fakeRepo) InsertBatch(_ context.Context, store string, userID int64, records []*classifier.Transaction) (int, error) {
	if err := f.insertErr[store]; err != nil {
		return 0, err
	}
	f.inserted[store] = append(f.inserted[store], records...)
	f.userIDs[store] = userID
	return len(records), nil
}

func (f *fakeRepo) CreateIngestJob(_ context.Context, job *repository.IngestJob) error {
	if f.createJobErr != nil {
		return f.createJobErr
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	f.createdJob = job
	return nil
}

func (f *fakeRepo) FinishIngestJob(_ context.Context, _ uuid.UUID, status string, rowsWritten, categoriesFailed int, errorMessage *string) error {
	f.finishCalled = true
	f.finishStatus = status
	f.finishRows = rowsWritten
	f.finishFailed = categoriesFailed
	f.finishMsg = errorMessage
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func document(bodies ...string) []byte {
	doc := `<smses>`
	for _, b := range bodies {
		doc += fmt.Sprintf(`<sms body=%q readable_date="1 Jan 2023 10:00:00 AM" />`, b)
	}
	return []byte(doc + `</smses>`)
}

func TestIngestDocument_EndToEnd(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestService(repo, testLogger())

	data := document("You have received 5,000 RWF from John Doe (123456789) on your mobile money account")

	result, err := svc.IngestDocument(context.Background(), 7, data)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 1, result.MessagesTotal)
	assert.Equal(t, 1, result.RowsWritten)
	assert.Empty(t, result.Failed())

	// one outcome per catalog bucket plus the residual one
	assert.Len(t, result.Outcomes, len(classifier.Categories())+1)

	records := repo.inserted["incoming_money"]
	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "Incoming_Money", record.Category)
	require.NotNil(t, record.Amount)
	assert.Equal(t, "5000", *record.Amount)
	require.NotNil(t, record.SenderName)
	assert.Equal(t, "John Doe", *record.SenderName)
	require.NotNil(t, record.SenderNumber)
	assert.Equal(t, "123456789", *record.SenderNumber)
	require.NotNil(t, record.Date)

	assert.Equal(t, int64(7), repo.userIDs["incoming_money"])

	require.NotNil(t, repo.createdJob)
	assert.Equal(t, int64(7), repo.createdJob.UserID)
	assert.True(t, repo.finishCalled)
	assert.Equal(t, "succeeded", repo.finishStatus)
	assert.Equal(t, 1, repo.finishRows)
	assert.Equal(t, 0, repo.finishFailed)
}

// One category's provisioning failure must not block any other category.
func TestIngestDocument_PartialFailureIsolation(t *testing.T) {
	repo := newFakeRepo()
	repo.ensureErr["incoming_money"] = fmt.Errorf("%w: incoming_money: permission denied", repository.ErrStoreProvisioning)
	svc := NewIngestService(repo, testLogger())

	data := document(
		"You have received 5,000 RWF from John Doe (123456789) on your mobile money account",
		"A bank deposit of 40,000 RWF has been added to your mobile money account",
	)

	result, err := svc.IngestDocument(context.Background(), 3, data)
	require.NoError(t, err)

	assert.Equal(t, 2, result.MessagesTotal)
	assert.Equal(t, 1, result.RowsWritten)
	assert.Len(t, repo.inserted["bank_deposits"], 1)
	assert.Empty(t, repo.inserted["incoming_money"])

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "incoming_money", failed[0].Store)
	assert.ErrorIs(t, failed[0].Err, repository.ErrStoreProvisioning)

	assert.Equal(t, "partial", repo.finishStatus)
	assert.Equal(t, 1, repo.finishFailed)
	require.NotNil(t, repo.finishMsg)
	assert.Contains(t, *repo.finishMsg, "incoming_money")
}

func TestIngestDocument_WriteFailureIsolation(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr["bank_deposits"] = fmt.Errorf("%w: bank_deposits: connection reset", repository.ErrStoreWrite)
	svc := NewIngestService(repo, testLogger())

	data := document(
		"You have received 5,000 RWF from John Doe (123456789) on your mobile money account",
		"A bank deposit of 40,000 RWF has been added to your mobile money account",
	)

	result, err := svc.IngestDocument(context.Background(), 3, data)
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowsWritten)
	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, repository.ErrStoreWrite)
	assert.Len(t, repo.inserted["incoming_money"], 1)
}

func TestIngestDocument_MalformedDocument(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestService(repo, testLogger())

	result, err := svc.IngestDocument(context.Background(), 7, []byte(`<smses><sms body="x"`))
	require.ErrorIs(t, err, extractor.ErrMalformedDocument)
	assert.Nil(t, result)
	assert.Nil(t, repo.createdJob)
	assert.Empty(t, repo.ensured)
}

// Ledger bookkeeping must never block ingestion.
func TestIngestDocument_JobLedgerFailureNotFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.createJobErr = errors.New("ledger unavailable")
	svc := NewIngestService(repo, testLogger())

	data := document("A bank deposit of 40,000 RWF has been added to your mobile money account")

	result, err := svc.IngestDocument(context.Background(), 9, data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsWritten)
	assert.False(t, repo.finishCalled)
}

func TestClassify_DryRun(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestService(repo, testLogger())

	data := document("You have received 5,000 RWF from John Doe (123456789) on your mobile money account")

	grouped, err := svc.Classify(data)
	require.NoError(t, err)
	assert.Equal(t, 1, grouped.Total())
	assert.Len(t, grouped["Incoming_Money"], 1)

	// nothing persisted
	assert.Empty(t, repo.ensured)
	assert.Empty(t, repo.inserted)
}

func TestIngestDocument_UnprocessedBucketPersisted(t *testing.T) {
	repo := newFakeRepo()
	svc := NewIngestService(repo, testLogger())

	data := document("hello there, nothing financial here")

	result, err := svc.IngestDocument(context.Background(), 5, data)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsWritten)

	records := repo.inserted["unprocessed_data"]
	require.Len(t, records, 1)
	assert.Equal(t, classifier.Unprocessed, records[0].Category)
	assert.Nil(t, records[0].Amount)
}
