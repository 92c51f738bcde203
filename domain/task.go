package domain

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Status is the closed set of states a task can be in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// ParseStatus converts raw input into a Status, rejecting anything outside the enumeration.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// UnmarshalText rejects unknown values so they never reach a store.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// Task represents a user-owned activity item.
type Task struct {
	ID        string    `json:"id" bson:"_id"`
	Owner     string    `json:"owner" bson:"owner"`
	Title     string    `json:"title" bson:"title"`
	Status    Status    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NewTask builds an unsaved task for owner in the initial state.
func NewTask(owner, title string) *Task {
	return &Task{
		Owner:  owner,
		Title:  NormalizeTitle(title),
		Status: StatusTodo,
	}
}

// Validate checks the invariants every persisted task must hold.
func (t *Task) Validate() error {
	if t == nil {
		return ErrInvalidPayload
	}
	if NormalizeTitle(t.Title) == "" {
		return ErrTitleRequired
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.Owner == "" {
		return ErrOwnerRequired
	}
	return nil
}

// Touch moves UpdatedAt forward to now, keeping it strictly increasing at millisecond
// precision, the coarsest any store keeps.
func (t *Task) Touch(now time.Time) {
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Millisecond)
	}
	t.UpdatedAt = now
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
}

// NormalizeTitle trims surrounding whitespace and applies NFC so equal titles compare equal.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}

// TaskPatch carries the recognised mutable fields of a task. Nil fields are left untouched.
type TaskPatch struct {
	Title  *string `json:"title,omitempty"`
	Status *Status `json:"status,omitempty"`
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Status == nil
}

// Validate normalizes the title in place and checks both fields.
func (p *TaskPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Title != nil {
		title := NormalizeTitle(*p.Title)
		if title == "" {
			return ErrTitleRequired
		}
		p.Title = &title
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Apply copies the set fields onto t. Callers validate first.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}
