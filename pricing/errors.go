package pricing

import "errors"

// ErrInvalidArgument is returned when a caller supplies malformed input,
// for example an empty instrument id or an empty record chunk.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrBatchNotFound is returned when a batch id is unknown to the registry.
// Terminated batches are removed immediately, so operating on a completed
// or cancelled batch reports this error as well.
var ErrBatchNotFound = errors.New("batch not found")

// ErrInvalidBatchState is returned when an operation is not legal for the
// batch's current lifecycle state.
var ErrInvalidBatchState = errors.New("invalid batch state")
