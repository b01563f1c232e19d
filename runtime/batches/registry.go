package batches

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sivanandareddychinta/PricingServiceDemo/pricing"
)

// State models the lifecycle of a batch run. Started is the only
// non-terminal state; Completed and Cancelled are terminal and
// irreversible.
type State string

const (
	// StateStarted marks a batch that is accepting record uploads.
	StateStarted State = "started"
	// StateCompleted marks a batch whose records have been handed over for publishing.
	StateCompleted State = "completed"
	// StateCancelled marks a batch whose records were discarded.
	StateCancelled State = "cancelled"
)

type batchRun struct {
	id     string
	state  State
	staged []pricing.Record
}

// Registry owns the in-flight batch runs and their lifecycle. All
// mutations serialize through a single mutex whose critical sections are
// pure map bookkeeping; the registry never performs merge work itself.
//
// Terminated batches are removed from the registry the moment they reach
// a terminal state, so their memory can be reclaimed and their ids report
// pricing.ErrBatchNotFound afterwards. Batch ids are never reused.
type Registry struct {
	mu      sync.Mutex
	batches map[string]*batchRun
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{batches: make(map[string]*batchRun)}
}

// Start allocates a fresh batch run in the Started state and returns its id.
func (r *Registry) Start() string {
	id := uuid.NewString()

	r.mu.Lock()
	r.batches[id] = &batchRun{id: id, state: StateStarted}
	r.mu.Unlock()

	return id
}

// Upload appends a chunk of records to the batch's staging area in call
// order. It may be invoked any number of times while the batch is
// Started.
func (r *Registry) Upload(id string, records []pricing.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("upload to batch %s: records must not be empty: %w", id, pricing.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	batch, err := r.startedLocked(id)
	if err != nil {
		return err
	}
	batch.staged = append(batch.staged, records...)
	return nil
}

// Cancel transitions the batch to Cancelled and removes it. The staged
// records are discarded and will never be merged.
func (r *Registry) Cancel(id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, err := r.startedLocked(id)
	if err != nil {
		return 0, err
	}
	batch.state = StateCancelled
	delete(r.batches, id)
	return len(batch.staged), nil
}

// TakeForCompletion transitions the batch to Completed, removes it from
// the registry and hands its staged records to the caller for merging.
// The handover is atomic with respect to concurrent Upload, Cancel and
// TakeForCompletion calls on the same id; the merge itself happens
// outside the registry mutex so the (potentially large) publish work
// never extends its critical section.
func (r *Registry) TakeForCompletion(id string) ([]pricing.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, err := r.startedLocked(id)
	if err != nil {
		return nil, err
	}
	batch.state = StateCompleted
	delete(r.batches, id)
	return batch.staged, nil
}

// ActiveCount returns the number of batches currently in the Started state.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *Registry) startedLocked(id string) (*batchRun, error) {
	batch, ok := r.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, pricing.ErrBatchNotFound)
	}
	if batch.state != StateStarted {
		// Unreachable while terminal batches are removed eagerly, kept as a
		// guard so the state machine stays explicit.
		return nil, fmt.Errorf("batch %s is %s: %w", id, batch.state, pricing.ErrInvalidBatchState)
	}
	return batch, nil
}
