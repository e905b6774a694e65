// Package state provides the shared key/value store a trial run coordinates through.
//
// The store is field-partitioned: the set of fields is fixed when the store is
// created and each field carries its own lock. Agents never write the store
// directly; they receive a Scope naming the fields they own.
package state

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Field names a slot in the store.
type Field string

// Fields used by a trial run.
const (
	Topic             Field = "topic"
	PositiveEvidence  Field = "positive_evidence"
	NegativeEvidence  Field = "negative_evidence"
	EvaluatorFeedback Field = "evaluator_feedback"
)

// Separator joins successive appends to an accumulator field.
const Separator = "\n\n"

var (
	ErrUnknownField = errors.New("unknown state field")
	ErrNotOwner     = errors.New("field not owned by scope")
	ErrImmutable    = errors.New("field is immutable once set")
	ErrEmptyText    = errors.New("refusing to append empty text")
)

// slot holds one field. A nil value means absent.
type slot struct {
	mu        sync.Mutex
	value     *string
	immutable bool
}

// Store is a run-scoped key/value store with one lock per field.
type Store struct {
	slots map[Field]*slot
	order []Field
}

// New creates a store with the standard trial fields. Topic is write-once.
func New() *Store {
	return NewWithFields([]Field{Topic}, PositiveEvidence, NegativeEvidence, EvaluatorFeedback)
}

// NewWithFields creates a store with the given write-once and mutable fields.
// The slot map is never modified after construction, so concurrent lookups are safe.
func NewWithFields(immutable []Field, mutable ...Field) *Store {
	s := &Store{slots: make(map[Field]*slot)}
	for _, f := range immutable {
		s.slots[f] = &slot{immutable: true}
		s.order = append(s.order, f)
	}
	for _, f := range mutable {
		if _, ok := s.slots[f]; ok {
			continue
		}
		s.slots[f] = &slot{}
		s.order = append(s.order, f)
	}
	return s
}

func (s *Store) slot(f Field) (*slot, error) {
	sl, ok := s.slots[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return sl, nil
}

// Get returns the value of a field and whether it is present.
func (s *Store) Get(f Field) (string, bool) {
	sl, err := s.slot(f)
	if err != nil {
		return "", false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.value == nil {
		return "", false
	}
	return *sl.value, true
}

// Value returns the field value, or "" when absent.
func (s *Store) Value(f Field) string {
	v, _ := s.Get(f)
	return v
}

// Snapshot copies every present field.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.order))
	for _, f := range s.order {
		if v, ok := s.Get(f); ok {
			out[string(f)] = v
		}
	}
	return out
}

// Scope returns a writer restricted to the given fields.
func (s *Store) Scope(owner string, fields ...Field) *Scope {
	owned := make(map[Field]bool, len(fields))
	for _, f := range fields {
		owned[f] = true
	}
	return &Scope{store: s, owner: owner, owned: owned}
}

// Scope is a write handle over a subset of fields. Reads are unrestricted.
type Scope struct {
	store *Store
	owner string
	owned map[Field]bool
}

func (sc *Scope) writable(f Field) (*slot, error) {
	sl, err := sc.store.slot(f)
	if err != nil {
		return nil, err
	}
	if !sc.owned[f] {
		return nil, fmt.Errorf("%w: %s cannot write %s", ErrNotOwner, sc.owner, f)
	}
	return sl, nil
}

// Set overwrites a field.
func (sc *Scope) Set(f Field, value string) error {
	sl, err := sc.writable(f)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.immutable && sl.value != nil {
		return fmt.Errorf("%w: %s", ErrImmutable, f)
	}
	sl.value = &value
	return nil
}

// Append concatenates text onto a field, separated by a blank line when the
// field already has content. The read-modify-write happens under the field lock.
func (sc *Scope) Append(f Field, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyText, f)
	}
	sl, err := sc.writable(f)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.immutable && sl.value != nil {
		return fmt.Errorf("%w: %s", ErrImmutable, f)
	}
	next := text
	if sl.value != nil && *sl.value != "" {
		next = *sl.value + Separator + text
	}
	sl.value = &next
	return nil
}

// Clear makes a field absent.
func (sc *Scope) Clear(f Field) error {
	sl, err := sc.writable(f)
	if err != nil {
		return err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.immutable && sl.value != nil {
		return fmt.Errorf("%w: %s", ErrImmutable, f)
	}
	sl.value = nil
	return nil
}
