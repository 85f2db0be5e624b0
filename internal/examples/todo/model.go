package todo

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Priority of a todo.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status of a todo.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid todo")

// Now is the clock todos are stamped with.
var Now = time.Now

var validate = validator.New()

// Todo is a single item on the list.
type Todo struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority" validate:"oneof=low medium high"`
	Tags        []string   `json:"tags"`
	Status      Status     `json:"status" validate:"oneof=pending completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Option customizes a new Todo.
type Option func(*Todo)

// WithDescription sets the description.
func WithDescription(d string) Option { return func(t *Todo) { t.Description = d } }

// WithPriority sets the priority.
func WithPriority(p Priority) Option { return func(t *Todo) { t.Priority = p } }

// WithTags sets the tags.
func WithTags(tags ...string) Option { return func(t *Todo) { t.Tags = tags } }

// WithID sets the ID instead of generating one.
func WithID(id string) Option { return func(t *Todo) { t.ID = id } }

// New creates a pending todo. Tags are lower-cased, trimmed and de-duplicated.
func New(title string, opts ...Option) (*Todo, error) {
	t := &Todo{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Priority:  PriorityMedium,
		Status:    StatusPending,
		CreatedAt: Now(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Tags = normalizeTags(t.Tags)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the field constraints.
func (t *Todo) Validate() error {
	if err := validate.Struct(t); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			switch fe.Tag() {
			case "required":
				return fmt.Errorf("%w: %s cannot be empty", ErrInvalid, strings.ToLower(fe.Field()))
			case "max":
				return fmt.Errorf("%w: %s cannot exceed %s characters", ErrInvalid, strings.ToLower(fe.Field()), fe.Param())
			default:
				return fmt.Errorf("%w: %s must be one of [%s], got %q", ErrInvalid, strings.ToLower(fe.Field()), fe.Param(), fe.Value())
			}
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Complete marks the todo as done.
func (t *Todo) Complete() error {
	if t.Status == StatusCompleted {
		return fmt.Errorf("%w: todo is already completed", ErrInvalid)
	}
	now := Now()
	t.Status = StatusCompleted
	t.CompletedAt = &now
	return nil
}

// Reopen marks a completed todo as pending again.
func (t *Todo) Reopen() error {
	if t.Status == StatusPending {
		return fmt.Errorf("%w: todo is already pending", ErrInvalid)
	}
	t.Status = StatusPending
	t.CompletedAt = nil
	return nil
}

// AddTag adds a normalized tag once.
func (t *Todo) AddTag(tag string) error {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return fmt.Errorf("%w: tag cannot be empty", ErrInvalid)
	}
	if !slices.Contains(t.Tags, tag) {
		t.Tags = append(t.Tags, tag)
	}
	return nil
}

// RemoveTag removes a tag if present.
func (t *Todo) RemoveTag(tag string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	t.Tags = slices.DeleteFunc(t.Tags, func(s string) bool { return s == tag })
}

// HasTag reports whether the todo carries tag.
func (t *Todo) HasTag(tag string) bool {
	return slices.Contains(t.Tags, strings.ToLower(strings.TrimSpace(tag)))
}

// MatchesSearch reports whether query appears in the title, description or a tag.
func (t *Todo) MatchesSearch(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	return slices.ContainsFunc(t.Tags, func(tag string) bool { return strings.Contains(tag, q) })
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return out
}
