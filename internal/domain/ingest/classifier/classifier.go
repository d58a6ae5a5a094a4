// Package classifier turns raw mobile-money notifications into categorized
// transactions by running an ordered catalog of pattern rules over each body.
package classifier

import (
	"regexp"
	"strings"
	"time"

	"github.com/dusabe/momo-tracker/internal/domain/ingest/extractor"
)

// Unprocessed is the residual bucket for bodies no catalog rule matches.
const Unprocessed = "unprocessed_data"

// Transaction is one classified notification. Numeric fields stay as
// separator-stripped digit strings here; conversion to float happens at
// ingestion. Fields a category does not populate are nil, never zeroed.
type Transaction struct {
	ID             *string
	Category       string
	Date           *time.Time
	Amount         *string
	Fee            *string
	NewBalance     *string
	TransactionID  *string
	SenderName     *string
	ReceiverName   *string
	ThirdPartyName *string
	SenderNumber   *string
	ReceiverNumber *string
	AgentNumber    *string
}

// Grouped maps category name to the transactions assigned to it, including
// the Unprocessed bucket. Every input message lands in exactly one bucket.
type Grouped map[string][]*Transaction

// Total returns the number of transactions across all buckets.
func (g Grouped) Total() int {
	n := 0
	for _, txs := range g {
		n += len(txs)
	}
	return n
}

// Extractions that run on every body regardless of which category wins.
var (
	reTransactionID = regexp.MustCompile(`TxId: (\d+)`)
	reAmountRWF     = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*) RWF`)
	reFee           = regexp.MustCompile(`Fee was:?\s*(.*?) RWF`)
	reNewBalance    = regexp.MustCompile(`(?i)(?:Your\s+)?new\s+balance\s*:\s*(\d+) RWF`)
)

// ClassifyMessage produces exactly one Transaction for a message. The
// working record starts out Unprocessed; every catalog rule whose pattern
// matches overwrites the category and its fields in order, so when a body
// matches more than one rule the last one in the catalog wins. That ordering
// is the compatibility contract with existing data and must not be replaced
// with first-match-wins.
func ClassifyMessage(msg extractor.RawMessage) *Transaction {
	t := &Transaction{
		Category: Unprocessed,
		Date:     msg.Timestamp,
	}

	if m := reTransactionID.FindStringSubmatch(msg.Body); m != nil {
		t.TransactionID = ptr(m[1])
	}
	if m := reAmountRWF.FindStringSubmatch(msg.Body); m != nil {
		t.Amount = ptr(stripSeparators(m[1]))
	}
	if m := reFee.FindStringSubmatch(msg.Body); m != nil {
		t.Fee = ptr(stripSeparators(m[1]))
	}
	if m := reNewBalance.FindStringSubmatch(msg.Body); m != nil {
		t.NewBalance = ptr(stripSeparators(m[1]))
	}

	for _, rule := range catalog {
		if m := rule.pattern.FindStringSubmatch(msg.Body); m != nil {
			t.Category = rule.category
			rule.apply(t, m)
		}
	}

	return t
}

// Classify runs ClassifyMessage over a batch and groups the results. The
// mapping always carries every catalog bucket, empty or not, matching what
// downstream store provisioning expects.
func Classify(msgs []extractor.RawMessage) Grouped {
	grouped := make(Grouped, len(catalog)+1)
	for _, rule := range catalog {
		grouped[rule.category] = []*Transaction{}
	}
	grouped[Unprocessed] = []*Transaction{}

	for _, msg := range msgs {
		t := ClassifyMessage(msg)
		grouped[t.Category] = append(grouped[t.Category], t)
	}

	return grouped
}

func stripSeparators(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

func ptr(s string) *string {
	return &s
}
