package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewRecordValidation(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		id      string
		asOf    time.Time
		payload interface{}
	}{
		{name: "empty id", id: "", asOf: now, payload: 1.0},
		{name: "zero timestamp", id: "AAPL", asOf: time.Time{}, payload: 1.0},
		{name: "nil payload", id: "AAPL", asOf: now, payload: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewRecord(tc.id, tc.asOf, tc.payload); !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", err)
			}
		})
	}
}

func TestRecordAccessors(t *testing.T) {
	asOf := time.Now()
	payload := decimal.NewFromFloat(101.25)

	record, err := NewRecord("AAPL", asOf, payload)
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if record.ID() != "AAPL" {
		t.Fatalf("unexpected id %q", record.ID())
	}
	if !record.AsOf().Equal(asOf) {
		t.Fatalf("unexpected as-of %v", record.AsOf())
	}
	if got, ok := record.Payload().(decimal.Decimal); !ok || !got.Equal(payload) {
		t.Fatalf("unexpected payload %v", record.Payload())
	}
	if record.IsZero() {
		t.Fatalf("constructed record must not be zero")
	}
}

func TestRecordEqual(t *testing.T) {
	asOf := time.Now()
	a, _ := NewRecord("AAPL", asOf, 100.0)
	b, _ := NewRecord("AAPL", asOf, 100.0)
	c, _ := NewRecord("AAPL", asOf, 101.0)

	if !a.Equal(b) {
		t.Fatalf("expected structural equality")
	}
	if a.Equal(c) {
		t.Fatalf("different payloads must not compare equal")
	}
}
