// Package summary aggregates trial results into buckets of identical output
// and reads and writes the summary file.
package summary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Bucket is one class of equivalent trial outputs. Slot is the index of
// its representative log, log{Slot}.
type Bucket struct {
	Slot  int
	Count int
	Times []string
}

// Summary holds buckets in slot order. Slots are contiguous from 0.
type Summary struct {
	buckets []Bucket
}

func New() *Summary {
	return &Summary{}
}

// Record adds one trial. When matched, the trial joins bucket idx;
// otherwise it opens a new bucket at slot Len(). It returns the slot the
// trial was counted in.
func (s *Summary) Record(idx int, matched bool, elapsed string) (int, error) {
	if !matched {
		slot := len(s.buckets)
		s.buckets = append(s.buckets, Bucket{Slot: slot, Count: 1, Times: []string{elapsed}})
		return slot, nil
	}
	if idx < 0 || idx >= len(s.buckets) {
		return 0, fmt.Errorf("bucket %d out of range [0,%d)", idx, len(s.buckets))
	}
	b := &s.buckets[idx]
	b.Count++
	b.Times = append(b.Times, elapsed)
	return idx, nil
}

// Len is the number of populated buckets, which is also the next free slot.
func (s *Summary) Len() int { return len(s.buckets) }

// Buckets returns a copy of the buckets in slot order.
func (s *Summary) Buckets() []Bucket {
	out := make([]Bucket, len(s.buckets))
	for i, b := range s.buckets {
		b.Times = append([]string(nil), b.Times...)
		out[i] = b
	}
	return out
}

// Total is the number of trials recorded.
func (s *Summary) Total() int {
	n := 0
	for _, b := range s.buckets {
		n += b.Count
	}
	return n
}

// WriteTo writes the summary file format: per bucket, a
// "log{slot}: {count} times" line followed by the comma-joined times.
func (s *Summary) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, b := range s.buckets {
		n, err := fmt.Fprintf(w, "log%d: %d times\n%s\n", b.Slot, b.Count, strings.Join(b.Times, ", "))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (s *Summary) String() string {
	var sb strings.Builder
	s.WriteTo(&sb)
	return sb.String()
}

// Save writes the summary to path.
func (s *Summary) Save(path string) error {
	if err := os.WriteFile(path, []byte(s.String()), 0o644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

var headerRe = regexp.MustCompile(`^log(\d+): (\d+) times$`)

// Parse reads a summary written by WriteTo.
func Parse(r io.Reader) (*Summary, error) {
	s := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		header := sc.Text()
		if header == "" {
			continue
		}
		m := headerRe.FindStringSubmatch(header)
		if m == nil {
			return nil, fmt.Errorf("line %d: malformed bucket header %q", lineNo, header)
		}
		slot, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bucket slot: %w", lineNo, err)
		}
		count, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: bucket count: %w", lineNo, err)
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("line %d: bucket log%d has no times line", lineNo, slot)
		}
		lineNo++
		var times []string
		if t := sc.Text(); t != "" {
			times = strings.Split(t, ", ")
		}
		s.buckets = append(s.buckets, Bucket{Slot: slot, Count: count, Times: times})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	return s, nil
}

// Load parses the summary file at path.
func Load(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening summary: %w", err)
	}
	defer f.Close()
	return Parse(f)
}
