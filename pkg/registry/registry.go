// Package registry tracks the sealed tasks of a process and the optimization
// metadata attached to them.
//
// A Registry is created empty with New and passed explicitly to every seal
// operation; there is no package-level instance.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrEmptyTaskID   = errors.New("registry: empty task id")
	ErrDuplicateTask = errors.New("registry: task id already sealed")
	ErrNotFound      = errors.New("registry: task not found")
)

// Record describes one sealed task.
type Record struct {
	TaskID          string `json:"task_id"`
	SignatureHash   string `json:"signature_hash"`
	InstructionHash string `json:"instruction_hash"`
	Model           string `json:"model,omitempty"`

	// Optimization metadata, filled in by Update.
	TrainingHash  string   `json:"training_hash,omitempty"`
	OptConfigHash string   `json:"opt_config_hash,omitempty"`
	Fitness       *float64 `json:"fitness,omitempty"`
	WeightsPath   string   `json:"weights_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registry manages the task ids in use.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Claim reserves rec.TaskID. It fails if the id is empty or already claimed.
func (r *Registry) Claim(rec Record) error {
	if rec.TaskID == "" {
		return ErrEmptyTaskID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.TaskID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, rec.TaskID)
	}
	now := r.now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.records[rec.TaskID] = &rec
	return nil
}

// Release frees a task id so it can be sealed again.
// Reports whether the id was claimed.
func (r *Registry) Release(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.records[taskID]
	delete(r.records, taskID)
	return ok
}

// Get returns a copy of the record for taskID.
func (r *Registry) Get(taskID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[taskID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Update applies fn to the record for taskID. Identity fields (task id,
// hashes, creation time) are restored after fn runs.
func (r *Registry) Update(taskID string, fn func(*Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, taskID)
	}
	cp := *rec
	fn(&cp)
	cp.TaskID = rec.TaskID
	cp.SignatureHash = rec.SignatureHash
	cp.InstructionHash = rec.InstructionHash
	cp.CreatedAt = rec.CreatedAt
	cp.UpdatedAt = r.now()
	r.records[taskID] = &cp
	return nil
}

// FindBestMatch returns the record with the highest fitness among those
// sharing both hashes. Scored records beat unscored ones; ties go to the
// oldest record.
func (r *Registry) FindBestMatch(signatureHash, instructionHash string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Record
	for _, rec := range r.records {
		if rec.SignatureHash != signatureHash || rec.InstructionHash != instructionHash {
			continue
		}
		if best == nil || better(rec, best) {
			best = rec
		}
	}
	if best == nil {
		return Record{}, false
	}
	return *best, true
}

func better(a, b *Record) bool {
	switch {
	case a.Fitness != nil && b.Fitness == nil:
		return true
	case a.Fitness == nil && b.Fitness != nil:
		return false
	case a.Fitness != nil && *a.Fitness != *b.Fitness:
		return *a.Fitness > *b.Fitness
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.TaskID < b.TaskID
}

// Tasks lists the claimed task ids in sorted order.
func (r *Registry) Tasks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
