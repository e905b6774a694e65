// Package session records hearings as JSONL transcripts.
package session

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Status constants for sessions.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Event types for the transcript. They mirror the stages of a hearing.
const (
	EventRunStart       = "run_start"
	EventIterationStart = "iteration_start"
	EventWorkerStart    = "worker_start"
	EventLookup         = "lookup"
	EventLLMCall        = "llm_call"
	EventEvidence       = "evidence"
	EventWorkerEnd      = "worker_end"
	EventVerdict        = "verdict"
	EventIterationEnd   = "iteration_end"
	EventLoopEnd        = "loop_end"
	EventSynthesisStart = "synthesis_start"
	EventDraftRejected  = "draft_rejected"
	EventPersisted      = "persisted"
	EventRunEnd         = "run_end"
)

// ErrNotFound is returned when no transcript exists for an ID.
var ErrNotFound = errors.New("session not found")

// Session is the transcript of one hearing.
type Session struct {
	ID         string            `json:"id"`
	Topic      string            `json:"topic"`
	Status     string            `json:"status"`
	Outcome    string            `json:"outcome,omitempty"` // accepted or exhausted
	Iterations int               `json:"iterations,omitempty"`
	Report     string            `json:"report,omitempty"` // Location of the verdict file
	Error      string            `json:"error,omitempty"`
	State      map[string]string `json:"state,omitempty"` // Final shared state
	Events     []Event           `json:"events"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	seqCounter uint64
	mu         sync.Mutex
}

// Event is a single transcript entry.
type Event struct {
	SeqID     uint64    `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Iteration int    `json:"iteration,omitempty"`
	Agent     string `json:"agent,omitempty"` // advocate, critic, evaluator, synthesizer

	Content    string `json:"content,omitempty"` // Evidence, feedback, query or location
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`

	Meta *EventMeta `json:"meta,omitempty"`
}

// EventMeta carries details of LLM calls and gate decisions.
type EventMeta struct {
	Words   int    `json:"words,omitempty"`
	Verdict string `json:"verdict,omitempty"` // accept or continue

	Model     string `json:"model,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	TokensIn  int    `json:"tokens_in,omitempty"`
	TokensOut int    `json:"tokens_out,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	Response  string `json:"response,omitempty"`
}

// New creates a running session.
func New(id, topic string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Topic:     topic,
		Status:    StatusRunning,
		State:     make(map[string]string),
		Events:    []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) nextSeqID() uint64 {
	return atomic.AddUint64(&s.seqCounter, 1)
}

// CurrentSeqID returns the last used sequence ID, or 0 for an empty session.
func (s *Session) CurrentSeqID() uint64 {
	return atomic.LoadUint64(&s.seqCounter)
}

// AddEvent appends an event with the next sequence ID.
func (s *Session) AddEvent(event Event) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.SeqID = s.nextSeqID()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	s.Events = append(s.Events, event)
	s.UpdatedAt = time.Now()
	return event.SeqID
}

// Duration is the wall time between creation and the last update.
func (s *Session) Duration() time.Duration {
	return s.UpdatedAt.Sub(s.CreatedAt)
}

// Store is the interface for transcript persistence.
type Store interface {
	Save(sess *Session) error
	Load(id string) (*Session, error)
}

// JSONL record types
const (
	RecordTypeHeader = "header"
	RecordTypeEvent  = "event"
	RecordTypeFooter = "footer"
)

// JSONLRecord is one line of a transcript file.
type JSONLRecord struct {
	RecordType string `json:"_type"`

	// Header
	ID        string    `json:"id,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`

	// Event
	*Event `json:",omitempty"`

	// Footer
	Status     string            `json:"status,omitempty"`
	Outcome    string            `json:"outcome,omitempty"`
	Iterations int               `json:"iterations,omitempty"`
	Report     string            `json:"report,omitempty"`
	Error      string            `json:"run_error,omitempty"` // Distinct from the embedded event's error
	State      map[string]string `json:"state,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
}

// FileStore keeps one <id>.jsonl file per session in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the transcript path for id.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

// Save rewrites the session's transcript: header, events, footer.
func (s *FileStore) Save(sess *Session) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	if err := enc.Encode(JSONLRecord{
		RecordType: RecordTypeHeader,
		ID:         sess.ID,
		Topic:      sess.Topic,
		CreatedAt:  sess.CreatedAt,
	}); err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	for i := range sess.Events {
		evt := sess.Events[i]
		if err := enc.Encode(JSONLRecord{RecordType: RecordTypeEvent, Event: &evt}); err != nil {
			return fmt.Errorf("failed to marshal event %d: %w", evt.SeqID, err)
		}
	}
	if err := enc.Encode(JSONLRecord{
		RecordType: RecordTypeFooter,
		Status:     sess.Status,
		Outcome:    sess.Outcome,
		Iterations: sess.Iterations,
		Report:     sess.Report,
		Error:      sess.Error,
		State:      sess.State,
		UpdatedAt:  sess.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("failed to marshal footer: %w", err)
	}

	// Write to a temp file and rename so a reader never sees half a transcript.
	tmp := s.Path(sess.ID) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.Path(sess.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads a session by ID.
func (s *FileStore) Load(id string) (*Session, error) {
	sess, err := LoadFile(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, err
}

// List returns session IDs, most recently modified first.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	type item struct {
		id  string
		mod time.Time
	}
	var items []item
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{id: strings.TrimSuffix(e.Name(), ".jsonl"), mod: info.ModTime()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].mod.After(items[j].mod) })

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return ids, nil
}

// LoadFile reads a transcript from path.
func LoadFile(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses a JSONL transcript.
func Read(r io.Reader) (*Session, error) {
	sess := &Session{
		State:  make(map[string]string),
		Events: []Event{},
	}

	// bufio.Reader rather than Scanner: prompts can exceed the Scanner line limit.
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("error reading JSONL: %w", err)
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if perr := parseJSONLLine(trimmed, sess); perr != nil {
				return nil, perr
			}
		}
		if err == io.EOF {
			break
		}
	}

	if len(sess.Events) > 0 {
		sess.seqCounter = sess.Events[len(sess.Events)-1].SeqID
	}
	return sess, nil
}

func parseJSONLLine(line []byte, sess *Session) error {
	var record JSONLRecord
	if err := json.Unmarshal(line, &record); err != nil {
		return fmt.Errorf("failed to parse JSONL line: %w", err)
	}

	switch record.RecordType {
	case RecordTypeHeader:
		sess.ID = record.ID
		sess.Topic = record.Topic
		sess.CreatedAt = record.CreatedAt

	case RecordTypeEvent:
		if record.Event != nil {
			sess.Events = append(sess.Events, *record.Event)
		}

	case RecordTypeFooter:
		sess.Status = record.Status
		sess.Outcome = record.Outcome
		sess.Iterations = record.Iterations
		sess.Report = record.Report
		sess.Error = record.Error
		if record.State != nil {
			sess.State = record.State
		}
		sess.UpdatedAt = record.UpdatedAt
	}
	return nil
}
