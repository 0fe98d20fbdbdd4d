package result

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	SummaryFile     = "summary"
	MachineInfoFile = "machine_info"
)

// Layout names every artifact inside a log directory.
type Layout struct {
	Dir string
}

func NewLayout(dir string) *Layout {
	return &Layout{Dir: dir}
}

func (l *Layout) LogPath(slot int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("log%d", slot))
}

func (l *Layout) TimeoutLogPath(slot, attempt int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("log%d_timeout%d", slot, attempt))
}

func (l *Layout) DmesgPath(slot int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("dmesg.log%d", slot))
}

func (l *Layout) TimeoutDmesgPath(slot, attempt int) string {
	return filepath.Join(l.Dir, fmt.Sprintf("dmesg.log%d_timeout%d", slot, attempt))
}

func (l *Layout) SummaryPath() string     { return filepath.Join(l.Dir, SummaryFile) }
func (l *Layout) MachineInfoPath() string { return filepath.Join(l.Dir, MachineInfoFile) }

// Prepare creates the log directory and removes artifacts left by a
// previous session. Unrelated files are kept.
func (l *Layout) Prepare() error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return fmt.Errorf("reading log dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isSessionArtifact(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(l.Dir, e.Name())); err != nil {
			return fmt.Errorf("removing stale %s: %w", e.Name(), err)
		}
	}
	return nil
}

func isSessionArtifact(name string) bool {
	return strings.HasPrefix(name, "log") ||
		strings.HasPrefix(name, "dmesg.log") ||
		name == SummaryFile ||
		name == MachineInfoFile
}

type Kind string

const (
	KindLog          Kind = "log"
	KindTimeoutLog   Kind = "timeout-log"
	KindDmesg        Kind = "dmesg"
	KindTimeoutDmesg Kind = "timeout-dmesg"
	KindSummary      Kind = "summary"
	KindMachineInfo  Kind = "machine-info"
	KindOther        Kind = "other"
)

type Artifact struct {
	Name    string
	Kind    Kind
	Slot    int // -1 when not applicable
	Attempt int // -1 unless a timeout artifact
	Size    int64
}

var artifactRe = regexp.MustCompile(`^(dmesg\.)?log(\d+)(?:_timeout(\d+))?$`)

// Classify maps a file name in the log directory to its artifact kind.
func Classify(name string) Artifact {
	a := Artifact{Name: name, Kind: KindOther, Slot: -1, Attempt: -1}
	switch name {
	case SummaryFile:
		a.Kind = KindSummary
		return a
	case MachineInfoFile:
		a.Kind = KindMachineInfo
		return a
	}
	m := artifactRe.FindStringSubmatch(name)
	if m == nil {
		return a
	}
	a.Slot, _ = strconv.Atoi(m[2])
	dmesg := m[1] != ""
	if m[3] != "" {
		a.Attempt, _ = strconv.Atoi(m[3])
		a.Kind = KindTimeoutLog
		if dmesg {
			a.Kind = KindTimeoutDmesg
		}
		return a
	}
	a.Kind = KindLog
	if dmesg {
		a.Kind = KindDmesg
	}
	return a
}

// List returns every file in the log directory, ordered by slot, then
// attempt, then name. Files outside any slot sort last.
func (l *Layout) List() ([]Artifact, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading log dir: %w", err)
	}
	var out []Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		a := Classify(e.Name())
		if info, err := e.Info(); err == nil {
			a.Size = info.Size()
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Slot, out[j].Slot
		if (si < 0) != (sj < 0) {
			return si >= 0
		}
		if si != sj {
			return si < sj
		}
		if out[i].Attempt != out[j].Attempt {
			return out[i].Attempt < out[j].Attempt
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
