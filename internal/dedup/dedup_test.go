package dedup_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/repbench/internal/dedup"
)

func writeLog(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFilter(t *testing.T) {
	got := dedup.Filter("start\nelapsed time: 1.2s\nmemory used: 40MB\nend\n")
	assert.Equal(t, []string{"start\n", "end\n"}, got)
	assert.Nil(t, dedup.Filter(""))
	assert.Equal(t, []string{"a\n", "b"}, dedup.Filter("a\nb"))
}

func TestFilterLineEndings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"crlf", "a\r\nb\r\n", []string{"a\n", "b\n"}},
		{"carriage return progress", "progress 50%\rtime: 1.0\nresult 42\n", []string{"progress 50%\n", "result 42\n"}},
		{"trailing carriage return", "done\r", []string{"done\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedup.Filter(tt.in))
		})
	}
}

func TestEquivalentLineEndings(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"crlf matches lf", "x\r\ntime: 1.0\r\n", "x\ntime: 2.0\n", true},
		{"carriage return keeps progress text", "progress 50%\rtime: 1.0\nresult 42\n", "result 42\n", false},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := writeLog(t, dir, fmt.Sprintf("a%d", i), tt.a)
			b := writeLog(t, dir, fmt.Sprintf("b%d", i), tt.b)
			same, err := dedup.Equivalent(a, b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, same)
		})
	}
}

func TestEquivalentIgnoresVolatileLines(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "log0", "result 42\ntime: 1.0 s\ncpu used: 10%\n")
	b := writeLog(t, dir, "log1", "result 42\ntime: 9.9 s\ncpu used: 97%\n")
	same, err := dedup.Equivalent(a, b)
	require.NoError(t, err)
	assert.True(t, same)
}

func TestEquivalentDetectsDifferences(t *testing.T) {
	dir := t.TempDir()
	base := writeLog(t, dir, "log0", "result 42\ntime: 1.0\n")
	tests := []struct {
		name string
		body string
	}{
		{"different value", "result 43\ntime: 1.0\n"},
		{"extra line", "result 42\nwarning\ntime: 1.0\n"},
		{"missing trailing newline", "result 42"},
		{"reordered", "time: 1.0\nresult 42\nresult 42\n"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := writeLog(t, dir, fmt.Sprintf("other%d", i), tt.body)
			same, err := dedup.Equivalent(base, other)
			require.NoError(t, err)
			assert.False(t, same)
		})
	}
}

func TestEquivalentSelfAndMissing(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "log0", "x\n")

	same, err := dedup.Equivalent(a, a)
	require.NoError(t, err)
	assert.False(t, same, "a file is never a duplicate of itself")

	missing := filepath.Join(dir, "log9")
	same, err = dedup.Equivalent(a, missing)
	require.NoError(t, err)
	assert.False(t, same)

	same, err = dedup.Equivalent(missing, a)
	require.NoError(t, err)
	assert.False(t, same)
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	reps := []string{
		writeLog(t, dir, "log0", "A\ntime: 1.0\n"),
		writeLog(t, dir, "log1", "B\ntime: 2.0\n"),
	}

	idx, ok, err := dedup.Classify(writeLog(t, dir, "new-b", "B\ntime: 3.0\n"), reps)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok, err = dedup.Classify(writeLog(t, dir, "new-a", "A\ntime: 0.5\n"), reps)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok, err = dedup.Classify(writeLog(t, dir, "new-c", "C\n"), reps)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = dedup.Classify(filepath.Join(dir, "absent"), reps)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = dedup.Classify(reps[0], reps)
	require.NoError(t, err)
	assert.False(t, ok, "self comparison must not match")

	_, ok, err = dedup.Classify(reps[0], nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestElapsedTime(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"first time line wins", "boot\ntime: 1.25 sec\ntime: 9.0\n", "1.25"},
		{"second field taken verbatim", "total time: 3.5\n", "time:"},
		{"no time line", "hello\n", dedup.UnknownTime},
		{"lone field", "time:\n", dedup.UnknownTime},
		{"carriage return splits lines", "progress 50%\rtime: 1.0\n", "1.0"},
		{"crlf", "time: 2.5\r\n", "2.5"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dedup.ElapsedTime(writeLog(t, dir, fmt.Sprintf("log%d", i), tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestElapsedTimeMissingLog(t *testing.T) {
	got, err := dedup.ElapsedTime(filepath.Join(t.TempDir(), "log0"))
	require.NoError(t, err)
	assert.Equal(t, dedup.TimeoutMarker, got)
}
