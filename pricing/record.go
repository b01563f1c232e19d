package pricing

import (
	"fmt"
	"reflect"
	"time"
)

// Record is a single price observation for an instrument. Records are
// immutable once constructed; the payload is opaque to the store and is
// only ever passed through to consumers.
type Record struct {
	id      string
	asOf    time.Time
	payload interface{}
}

// NewRecord validates and builds a Record.
func NewRecord(id string, asOf time.Time, payload interface{}) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record id must not be empty: %w", ErrInvalidArgument)
	}
	if asOf.IsZero() {
		return Record{}, fmt.Errorf("record %s: as-of timestamp must be set: %w", id, ErrInvalidArgument)
	}
	if payload == nil {
		return Record{}, fmt.Errorf("record %s: payload must not be nil: %w", id, ErrInvalidArgument)
	}
	return Record{id: id, asOf: asOf, payload: payload}, nil
}

// ID returns the instrument identifier.
func (r Record) ID() string {
	return r.id
}

// AsOf returns the observation timestamp.
func (r Record) AsOf() time.Time {
	return r.asOf
}

// Payload returns the opaque value carried by the record.
func (r Record) Payload() interface{} {
	return r.payload
}

// IsZero reports whether the record is the zero value.
func (r Record) IsZero() bool {
	return r.id == "" && r.asOf.IsZero() && r.payload == nil
}

// Equal reports structural equality of two records.
func (r Record) Equal(other Record) bool {
	return r.id == other.id &&
		r.asOf.Equal(other.asOf) &&
		reflect.DeepEqual(r.payload, other.payload)
}

func (r Record) String() string {
	return fmt.Sprintf("Record{id=%s as_of=%s payload=%v}", r.id, r.asOf.Format(time.RFC3339Nano), r.payload)
}
