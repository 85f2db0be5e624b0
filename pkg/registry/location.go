package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

// Location is a source position given on the command line as "file:line".
type Location struct {
	File string
	Line int
}

func (l Location) String() string { return fmt.Sprintf("%s:%d", l.File, l.Line) }

// ParseLocation parses "path/to/file.go:42".
func ParseLocation(s string) (Location, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return Location{}, fmt.Errorf("invalid location %q: want file:line", s)
	}
	line, err := strconv.Atoi(s[i+1:])
	if err != nil || line <= 0 {
		return Location{}, fmt.Errorf("invalid location %q: line must be a positive number", s)
	}
	return Location{File: s[:i], Line: line}, nil
}

// callerLocation returns the file and line skip frames above its caller.
func callerLocation(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "", 0
	}
	return file, line
}

// Location returns where the test was registered; see FormatLocation.
func (tc *TestCase) Location() string {
	return FormatLocation(tc.File, tc.Line)
}

// FormatLocation renders "file:line" with the file relative to the working
// directory when it lies below it. It is empty when file is.
func FormatLocation(file string, line int) string {
	if file == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", displayPath(file), line)
}

func displayPath(file string) string {
	wd, err := os.Getwd()
	if err != nil {
		return file
	}
	rel, err := filepath.Rel(wd, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return file
	}
	return rel
}

// sameFile reports whether a registered absolute path matches a path given
// by the user, which may be relative or just a trailing part of it.
func sameFile(registered, given string) bool {
	registered = filepath.ToSlash(filepath.Clean(registered))
	given = filepath.ToSlash(filepath.Clean(given))
	if registered == given {
		return true
	}
	if abs, err := filepath.Abs(given); err == nil && filepath.ToSlash(abs) == registered {
		return true
	}
	return strings.HasSuffix(registered, "/"+given)
}

// AtLines returns, for each line, the test registered at or closest before
// it in file. Tests come back in registration order without duplicates.
func (r *Registry) AtLines(file string, lines ...int) []*TestCase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.atLines(file, lines)
}

func (r *Registry) atLines(file string, lines []int) []*TestCase {
	var inFile []*TestCase
	for _, tc := range r.tests {
		if tc.File != "" && sameFile(tc.File, file) {
			inFile = append(inFile, tc)
		}
	}
	slices.SortStableFunc(inFile, func(a, b *TestCase) int { return a.Line - b.Line })

	picked := make(map[int]bool)
	for _, line := range lines {
		var best *TestCase
		for _, tc := range inFile {
			if tc.Line > line {
				break
			}
			best = tc
		}
		if best != nil {
			picked[best.ID] = true
		}
	}

	var out []*TestCase
	for _, tc := range r.tests {
		if picked[tc.ID] {
			out = append(out, tc)
		}
	}
	return out
}

// resolveLocations maps "file:line" filter values to test IDs.
func (r *Registry) resolveLocations(locs []string) (map[int]bool, error) {
	ids := make(map[int]bool)
	for _, s := range locs {
		loc, err := ParseLocation(s)
		if err != nil {
			return nil, err
		}
		found := r.atLines(loc.File, []int{loc.Line})
		if len(found) == 0 {
			return nil, fmt.Errorf("no test registered at or before %s", loc)
		}
		for _, tc := range found {
			ids[tc.ID] = true
		}
	}
	return ids, nil
}
