package classifier

import (
	"regexp"
	"strings"
)

// rule binds one category pattern to the fields it extracts. apply receives
// the full submatch slice and overwrites the working record in place.
type rule struct {
	category string
	pattern  *regexp.Regexp
	apply    func(t *Transaction, m []string)
}

// catalog order is load-bearing: rules are evaluated top to bottom without
// early exit, so a later match overwrites an earlier one.
var catalog = []rule{
	{
		category: "Incoming_Money",
		pattern:  regexp.MustCompile(`You have received (.*?) RWF from (.*?) \((\*?\d{9,15})\) on your mobile money account`),
		apply: func(t *Transaction, m []string) {
			t.Amount = ptr(stripSeparators(m[1]))
			t.SenderName = ptr(strings.TrimSpace(m[2]))
			t.SenderNumber = ptr(strings.TrimSpace(m[3]))
		},
	},
	{
		category: "Bank_Deposits",
		pattern:  regexp.MustCompile(`A bank deposit of (.*?) RWF has been added to your mobile money account`),
		apply: func(t *Transaction, m []string) {
			t.Amount = ptr(stripSeparators(m[1]))
		},
	},
	{
		category: "Transfers_to_Mobile_Numbers",
		pattern:  regexp.MustCompile(`\*(\d+)\*S\*(\d+)\sRWF transferred to ([A-Z][a-z]+(?: [A-Z][a-z]+)) \((\d{9,15})\) from (\d+)`),
		apply: func(t *Transaction, m []string) {
			t.Amount = ptr(stripSeparators(m[2]))
			t.ReceiverName = ptr(strings.TrimSpace(m[3]))
			t.ReceiverNumber = ptr(m[4])
		},
	},
	{
		category: "Payments_to_Code_Holders",
		pattern:  regexp.MustCompile(`TxId: (\d+)\.\s*Your payment of (.*?) RWF to\s*([A-Z][a-z]+(?: [A-Z][a-z]+)*)(?:\s+\d+)?\s+has been completed`),
		apply: func(t *Transaction, m []string) {
			t.Amount = ptr(stripSeparators(m[2]))
			t.ReceiverName = ptr(strings.TrimSpace(m[3]))
		},
	},
	{
		category: "Transactions_Initiated_by_Third_Parties",
		pattern:  regexp.MustCompile(`A transaction of (.*?) RWF by (.*?) on your MOMO account was successfully completed`),
		apply: func(t *Transaction, m []string) {
			t.Amount = ptr(stripSeparators(m[1]))
			t.ThirdPartyName = ptr(strings.TrimSpace(m[2]))
		},
	},
	{
		category: "Withdrawals_from_Agents",
		pattern:  regexp.MustCompile(`You .*? \(.*?\) have via agent: Agent ([A-Z][a-z]+(?: [A-Z][a-z]+)*) \((\d+)\), withdrawn (.*?) RWF from your mobile money `),
		apply: func(t *Transaction, m []string) {
			t.AgentNumber = ptr(m[2])
			t.Amount = ptr(stripSeparators(m[3]))
		},
	},
	{
		category: "Cash_Power_Bill_Payments",
		pattern:  regexp.MustCompile(`Your payment of (.*?) RWF to MTN Cash Power`),
		apply: func(t *Transaction, m []string) {
			t.Amount = ptr(stripSeparators(m[1]))
		},
	},
	{
		category: "Airtime_Bill_Payments",
		pattern:  regexp.MustCompile(`(\d+)\*TxId:(\d+)\*S\*Your payment of (\d{1,3}(?:,\d{3})*) RWF to Airtime with token has been completed`),
		apply: func(t *Transaction, m []string) {
			t.TransactionID = ptr(m[2])
			t.Amount = ptr(stripSeparators(m[3]))
		},
	},
	{
		category: "Bundle_Purchases",
		pattern:  regexp.MustCompile(`(\d+)\*TxId:(\d+)\*S\*Your payment of (\d{1,3}(?:,\d{3})*) RWF to Bundles and Packs with token has been completed`),
		apply: func(t *Transaction, m []string) {
			t.TransactionID = ptr(m[2])
			t.Amount = ptr(stripSeparators(m[3]))
		},
	},
	{
		// The lazy trailing group almost always captures an empty string, so
		// the generic amount is only overwritten when digits are present.
		category: "Bank_Transfers",
		pattern:  regexp.MustCompile(`A bank Transfer of (.*?)`),
		apply: func(t *Transaction, m []string) {
			if amount := stripSeparators(m[1]); strings.ContainsAny(amount, "0123456789") {
				t.Amount = ptr(amount)
			}
		},
	},
}

// Categories lists the catalog's category names in evaluation order, without
// the Unprocessed bucket.
func Categories() []string {
	names := make([]string, len(catalog))
	for i, r := range catalog {
		names[i] = r.category
	}
	return names
}
