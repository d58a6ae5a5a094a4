// Package extractor decodes exported SMS backup documents into raw messages.
// It performs no classification; every <sms> element becomes one RawMessage.
package extractor

import (
	"encoding/xml"
	"errors"
	"time"
)

// RawMessage is one notification pulled out of the backup document.
// Timestamp is nil when readable_date is missing or malformed.
type RawMessage struct {
	Body      string
	Timestamp *time.Time
}

var ErrMalformedDocument = errors.New("malformed sms document")

// readable_date layouts, e.g. "1 Jan 2023 10:00:00 AM". Exports are not
// consistent about zero-padding, so both variants are accepted.
var dateLayouts = []string{
	"2 Jan 2006 3:04:05 PM",
	"2 Jan 2006 03:04:05 PM",
	"02 Jan 2006 03:04:05 PM",
}

type smsElement struct {
	Body         string `xml:"body,attr"`
	ReadableDate string `xml:"readable_date,attr"`
}

type smsDocument struct {
	Messages []smsElement `xml:"sms"`
}

// Parse decodes an SMS backup document and returns its messages in document
// order. The root element name is not checked; only direct <sms> children
// count. If the XML cannot be decoded at all, Parse returns
// ErrMalformedDocument and no partial result.
func Parse(data []byte) ([]RawMessage, error) {
	var doc smsDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, ErrMalformedDocument
	}

	messages := make([]RawMessage, 0, len(doc.Messages))
	for _, sms := range doc.Messages {
		messages = append(messages, RawMessage{
			Body:      sms.Body,
			Timestamp: parseReadableDate(sms.ReadableDate),
		})
	}

	return messages, nil
}

// parseReadableDate returns nil for anything that does not match the export
// format. A bad date never fails the message, let alone the document.
func parseReadableDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
