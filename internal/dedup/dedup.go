// Package dedup decides whether two run logs are the same result.
//
// Lines containing "time:" or "used:" carry per-run measurements and are
// ignored; every other line, including its terminator, must match exactly.
package dedup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
)

// TimeoutMarker is the elapsed time recorded for a trial with no log.
const TimeoutMarker = "TIMEOUT"

// UnknownTime is recorded when a log has no usable "time:" line.
const UnknownTime = "N/A"

var volatileMarkers = []string{"time:", "used:"}

func isVolatile(line string) bool {
	for _, m := range volatileMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// Filter returns the lines of s that are not volatile.
func Filter(s string) []string {
	var out []string
	for _, line := range lines(s) {
		if !isVolatile(line) {
			out = append(out, line)
		}
	}
	return out
}

// lines splits s after each newline, keeping terminators, so that "a\n"
// and "a" stay distinct. "\r\n" and a lone "\r" end a line too and are
// read as "\n".
func lines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var out []string
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

// FilteredLines reads path and returns its non-volatile lines.
func FilteredLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Filter(string(data)), nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Equivalent reports whether a and b hold the same result. A missing file
// or a == b is never equivalent.
func Equivalent(a, b string) (bool, error) {
	if a == b {
		return false, nil
	}
	for _, p := range []string{a, b} {
		ok, err := exists(p)
		if err != nil {
			return false, fmt.Errorf("checking %s: %w", p, err)
		}
		if !ok {
			return false, nil
		}
	}
	la, err := FilteredLines(a)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", a, err)
	}
	lb, err := FilteredLines(b)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", b, err)
	}
	return slices.Equal(la, lb), nil
}

// Classify compares newPath against each representative in order and
// returns the index of the first equivalent one. ok is false when newPath
// starts a new bucket.
func Classify(newPath string, representatives []string) (idx int, ok bool, err error) {
	for i, rep := range representatives {
		same, err := Equivalent(newPath, rep)
		if err != nil {
			return 0, false, err
		}
		if same {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// ElapsedTime returns the second field of the first line containing
// "time:", TimeoutMarker if path does not exist, or UnknownTime when no
// such field is present.
func ElapsedTime(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return TimeoutMarker, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	for _, line := range lines(string(data)) {
		if !strings.Contains(line, "time:") {
			continue
		}
		if f := strings.Fields(line); len(f) > 1 {
			return f[1], nil
		}
		return UnknownTime, nil
	}
	return UnknownTime, nil
}
