package security

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ApprovalState is the lifecycle state of a single approval record.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalDenied   ApprovalState = "denied"
)

func (s ApprovalState) String() string { return string(s) }

// ApprovalRecord is one request for human sign-off on a confirmable tool
// call, persisted so it survives process restarts.
type ApprovalRecord struct {
	ID           string        `json:"id"`
	Session      string        `json:"session"`
	Command      string        `json:"command"`
	Paths        []string      `json:"paths,omitempty"`
	State        ApprovalState `json:"state"`
	Reason       string        `json:"reason,omitempty"`
	Approver     string        `json:"approver,omitempty"`
	AutoApproved bool          `json:"auto_approved,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ApprovedAt   *time.Time    `json:"approved_at,omitempty"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
}

func (r ApprovalRecord) clone() *ApprovalRecord {
	c := r
	if r.Paths != nil {
		c.Paths = append([]string(nil), r.Paths...)
	}
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		c.ApprovedAt = &t
	}
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

type approvalSnapshot struct {
	Records   map[string]*ApprovalRecord `json:"records"`
	Whitelist map[string]time.Time       `json:"whitelist"`
}

// ApprovalQueue tracks pending/approved/denied confirmations and the
// session-scoped "always proceed" whitelist, backed by a JSON sidecar file
// so restarts don't lose outstanding requests.
type ApprovalQueue struct {
	mu        sync.Mutex
	path      string
	clock     func() time.Time
	records   map[string]*ApprovalRecord
	whitelist map[string]time.Time
}

// NewApprovalQueue loads (or creates) a persisted approval queue at path.
func NewApprovalQueue(path string) (*ApprovalQueue, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("approval queue: store path is required")
	}
	q := &ApprovalQueue{
		path:      path,
		clock:     time.Now,
		records:   map[string]*ApprovalRecord{},
		whitelist: map[string]time.Time{},
	}
	if err := q.load(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *ApprovalQueue) load() error {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("approval queue: read store: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	var snap approvalSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("approval queue: decode store: %w", err)
	}
	if snap.Records != nil {
		q.records = snap.Records
	}
	if snap.Whitelist != nil {
		q.whitelist = snap.Whitelist
	}
	return nil
}

// persist must be called with q.mu held.
func (q *ApprovalQueue) persist() error {
	if q.path == "" {
		return nil
	}
	snap := approvalSnapshot{Records: q.records, Whitelist: q.whitelist}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("approval queue: encode store: %w", err)
	}
	if dir := filepath.Dir(q.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("approval queue: create store dir: %w", err)
		}
	}
	if err := os.WriteFile(q.path, data, 0o644); err != nil {
		return fmt.Errorf("approval queue: write store: %w", err)
	}
	return nil
}

// Request registers a new confirmation request. When session is already
// whitelisted, the record is auto-approved in place.
func (q *ApprovalQueue) Request(session, command string, paths []string) (*ApprovalRecord, error) {
	session = strings.TrimSpace(session)
	if session == "" {
		return nil, fmt.Errorf("approval queue: session id is required")
	}
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, fmt.Errorf("approval queue: command is required")
	}

	normalized := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		normalized = append(normalized, normalizePath(p))
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock()
	rec := &ApprovalRecord{
		ID:        uuid.NewString(),
		Session:   session,
		Command:   command,
		Paths:     normalized,
		State:     ApprovalPending,
		CreatedAt: now,
	}

	if expiry, ok := q.whitelist[session]; ok && now.Before(expiry) {
		rec.State = ApprovalApproved
		rec.AutoApproved = true
		rec.Approver = "whitelist"
		rec.Reason = "session is whitelisted"
		approvedAt := now
		rec.ApprovedAt = &approvedAt
		rec.ExpiresAt = &expiry
	}

	q.records[rec.ID] = rec
	if err := q.persist(); err != nil {
		return nil, err
	}
	return rec.clone(), nil
}

// Approve marks a pending record approved and, when ttl is positive,
// whitelists the session for the same duration.
func (q *ApprovalQueue) Approve(id, approver string, ttl time.Duration) (*ApprovalRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[id]
	if !ok {
		return nil, fmt.Errorf("approval queue: approval %s not found", id)
	}
	if rec.State == ApprovalDenied {
		return nil, fmt.Errorf("approval queue: approval %s was already denied", id)
	}

	now := q.clock()
	rec.State = ApprovalApproved
	rec.Approver = approver
	rec.ApprovedAt = &now
	if ttl > 0 {
		expiry := now.Add(ttl)
		rec.ExpiresAt = &expiry
		q.whitelist[rec.Session] = expiry
	}

	if err := q.persist(); err != nil {
		return nil, err
	}
	return rec.clone(), nil
}

// Deny marks a pending record denied with a human-readable reason.
func (q *ApprovalQueue) Deny(id, approver, reason string) (*ApprovalRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[id]
	if !ok {
		return nil, fmt.Errorf("approval queue: approval %s not found", id)
	}
	if rec.State == ApprovalApproved {
		return nil, fmt.Errorf("approval queue: approval %s was already approved", id)
	}

	rec.State = ApprovalDenied
	rec.Approver = approver
	rec.Reason = reason

	if err := q.persist(); err != nil {
		return nil, err
	}
	return rec.clone(), nil
}

// ListPending returns clones of every still-pending record.
func (q *ApprovalQueue) ListPending() []*ApprovalRecord {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make([]*ApprovalRecord, 0)
	for _, rec := range q.records {
		if rec.State == ApprovalPending {
			pending = append(pending, rec.clone())
		}
	}
	return pending
}

// IsWhitelisted reports whether session currently has a live "always
// proceed" grant.
func (q *ApprovalQueue) IsWhitelisted(session string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	expiry, ok := q.whitelist[session]
	if !ok {
		return false
	}
	return q.clock().Before(expiry)
}

func normalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}
