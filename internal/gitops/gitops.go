package gitops

import (
	"fmt"
	"os/exec"
	"strings"
)

// Revision identifies the source tree a session was built from.
type Revision struct {
	Commit string
	Dirty  bool
}

func (r Revision) String() string {
	if r.Dirty {
		return r.Commit + " (dirty)"
	}
	return r.Commit
}

// CurrentRevision returns HEAD of the git work tree containing dir and
// whether it has uncommitted changes.
func CurrentRevision(dir string) (Revision, error) {
	head := exec.Command("git", "rev-parse", "HEAD")
	head.Dir = dir
	out, err := head.CombinedOutput()
	if err != nil {
		return Revision{}, fmt.Errorf("git rev-parse HEAD: %s: %w", strings.TrimSpace(string(out)), err)
	}
	status := exec.Command("git", "status", "--porcelain")
	status.Dir = dir
	changes, err := status.Output()
	if err != nil {
		return Revision{}, fmt.Errorf("git status: %w", err)
	}
	return Revision{
		Commit: strings.TrimSpace(string(out)),
		Dirty:  len(strings.TrimSpace(string(changes))) > 0,
	}, nil
}
