package dedup

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type Op int

const (
	OpEqual Op = iota
	OpDelete
	OpInsert
)

type DiffLine struct {
	Op   Op
	Text string // without terminator
}

// Diff compares two logs line by line. Volatile lines are dropped first
// unless raw is set, so an empty-change result from Diff agrees with
// Equivalent.
func Diff(a, b string, raw bool) ([]DiffLine, error) {
	la, err := readForDiff(a, raw)
	if err != nil {
		return nil, err
	}
	lb, err := readForDiff(b, raw)
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	ca, cb, table := dmp.DiffLinesToChars(strings.Join(la, ""), strings.Join(lb, ""))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), table)

	var out []DiffLine
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		}
		for _, line := range lines(d.Text) {
			out = append(out, DiffLine{Op: op, Text: strings.TrimSuffix(line, "\n")})
		}
	}
	return out, nil
}

func readForDiff(path string, raw bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if raw {
		return lines(string(data)), nil
	}
	return Filter(string(data)), nil
}

// Changed reports whether any line differs.
func Changed(d []DiffLine) bool {
	for _, l := range d {
		if l.Op != OpEqual {
			return true
		}
	}
	return false
}

// WriteUnified prints d with "-", "+" and " " prefixes. Equal runs keep at
// most context lines next to each change; the rest are collapsed into one
// marker line. A negative context prints everything.
func WriteUnified(w io.Writer, d []DiffLine, context int) error {
	prefix := map[Op]string{OpEqual: " ", OpDelete: "-", OpInsert: "+"}
	for i := 0; i < len(d); i++ {
		if d[i].Op == OpEqual && context >= 0 {
			j := i
			for j < len(d) && d[j].Op == OpEqual {
				j++
			}
			head, tail := context, context
			if i == 0 {
				head = 0
			}
			if j == len(d) {
				tail = 0
			}
			if hidden := j - i - head - tail; hidden > 0 {
				if err := writeEqual(w, d[i:i+head]); err != nil {
					return err
				}
				if _, err := fmt.Fprintf(w, "@@ %d unchanged lines @@\n", hidden); err != nil {
					return err
				}
				if err := writeEqual(w, d[j-tail:j]); err != nil {
					return err
				}
				i = j - 1
				continue
			}
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", prefix[d[i].Op], d[i].Text); err != nil {
			return err
		}
	}
	return nil
}

func writeEqual(w io.Writer, d []DiffLine) error {
	for _, l := range d {
		if _, err := fmt.Fprintf(w, " %s\n", l.Text); err != nil {
			return err
		}
	}
	return nil
}
