package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is the stored form of a task. CreatedBy and AssignedTo hold user ids.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CanRead reports whether the actor may see the task.
func (t Task) CanRead(a Actor) bool {
	return a.IsAdmin() || t.CreatedBy == a.UserID || (t.AssignedTo != "" && t.AssignedTo == a.UserID)
}

// CanWrite reports whether the actor may modify or delete the task.
func (t Task) CanWrite(a Actor) bool {
	return a.IsAdmin() || t.CreatedBy == a.UserID
}

// TaskView is a task with its user references resolved.
type TaskView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedBy   UserRef    `json:"createdBy"`
	AssignedTo  *UserRef   `json:"assignedTo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// View resolves the task's user ids against users. Ids missing from the map
// are rendered as bare references.
func (t Task) View(users map[string]User) TaskView {
	v := TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedBy:   refOf(t.CreatedBy, users),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != "" {
		ref := refOf(t.AssignedTo, users)
		v.AssignedTo = &ref
	}
	return v
}

func refOf(id string, users map[string]User) UserRef {
	if u, ok := users[id]; ok {
		return u.Ref()
	}
	return UserRef{ID: id}
}

type TaskFilter struct {
	Status   *Status
	Priority *Priority
	// VisibleTo restricts results to tasks created by or assigned to this
	// user id. Empty means unrestricted.
	VisibleTo string
}

// Page selects a window of a list. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type TaskPage struct {
	Tasks      []TaskView `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

// TaskInput is the payload accepted when creating a task.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	DueDate     *Date    `json:"dueDate,omitempty"`
	AssignedTo  string   `json:"assignedTo,omitempty"`
}

// Date decodes RFC 3339 timestamps as well as plain YYYY-MM-DD dates.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// TaskPatch is a partial update. Only the fields below may be patched;
// DueDate and AssignedTo accept null to clear the value.
type TaskPatch struct {
	Title         *string
	Description   *string
	Status        *Status
	Priority      *Priority
	DueDate       *time.Time
	ClearDueDate  bool
	AssignedTo    *string
	ClearAssignee bool

	err *PatchError
}

// PatchError describes a patch body that names a field that cannot be
// changed or carries a value of the wrong shape.
type PatchError struct {
	Field  string
	Reason string
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Err returns the first problem found while decoding the patch, or nil.
// Decoding itself only fails on malformed JSON, so the caller decides when
// the problem is reported.
func (p TaskPatch) Err() error {
	if p.err == nil {
		return nil
	}
	return p.err
}

func (p *TaskPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if perr := p.set(key, raw[key]); perr != nil && p.err == nil {
			p.err = perr
		}
	}
	return nil
}

func (p *TaskPatch) set(key string, val json.RawMessage) *PatchError {
	null := bytes.Equal(bytes.TrimSpace(val), []byte("null"))

	switch key {
	case "title":
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return &PatchError{Field: key, Reason: "must be a string"}
		}
		p.Title = &s
	case "description":
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return &PatchError{Field: key, Reason: "must be a string"}
		}
		p.Description = &s
	case "status":
		var s Status
		if err := json.Unmarshal(val, &s); err != nil {
			return &PatchError{Field: key, Reason: "must be a string"}
		}
		p.Status = &s
	case "priority":
		var pr Priority
		if err := json.Unmarshal(val, &pr); err != nil {
			return &PatchError{Field: key, Reason: "must be a string"}
		}
		p.Priority = &pr
	case "dueDate":
		if null {
			p.ClearDueDate = true
			return nil
		}
		var d Date
		if err := json.Unmarshal(val, &d); err != nil {
			return &PatchError{Field: key, Reason: "must be a date"}
		}
		p.DueDate = &d.Time
	case "assignedTo":
		var s string
		if !null {
			if err := json.Unmarshal(val, &s); err != nil {
				return &PatchError{Field: key, Reason: "must be a user id"}
			}
		}
		if s == "" {
			p.ClearAssignee = true
			return nil
		}
		p.AssignedTo = &s
	default:
		return &PatchError{Field: key, Reason: "cannot be updated"}
	}
	return nil
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.AssignedTo == nil && !p.ClearAssignee
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.ClearDueDate {
		t.DueDate = nil
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.ClearAssignee {
		t.AssignedTo = ""
	}
	return t
}
