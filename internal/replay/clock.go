package replay

import (
	"fmt"
	"time"

	"that/pkg/mock"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FrozenClock always returns the same instant.
type FrozenClock struct {
	At time.Time
}

// Now returns the frozen instant.
func (c FrozenClock) Now() time.Time { return c.At }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp such as "2024-01-01T00:00:00Z".
// Values without a zone are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO datetime string: %q", s)
}

// Frozen returns a FrozenClock at the parsed ISO-8601 time.
func Frozen(iso string) (FrozenClock, error) {
	t, err := ParseTime(iso)
	if err != nil {
		return FrozenClock{}, err
	}
	return FrozenClock{At: t}, nil
}

// Freeze replaces a func() time.Time attribute of target with one returning
// the parsed time, restored when scope cleans up.
func Freeze(scope mock.Cleaner, target any, attr string, iso string) (*mock.Handle, error) {
	at, err := ParseTime(iso)
	if err != nil {
		return nil, err
	}
	return mock.Install(scope, target, attr, mock.Constant(at))
}
