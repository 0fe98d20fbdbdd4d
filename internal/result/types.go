package result

import "fmt"

// Outcome is the result of one attempt of the run command.
// Implementations: Success, TimedOut.
type Outcome interface {
	AttemptNum() int
	Logs() (logPath, dmesgPath string)
	String() string
}

// Success means the run command finished within the timeout, whatever its
// exit status. LogPath is the trial's canonical log.
type Success struct {
	Attempt   int
	ExitCode  int
	LogPath   string
	DmesgPath string
}

// TimedOut means the attempt was killed; its artifacts carry a
// _timeout{Attempt} suffix.
type TimedOut struct {
	Attempt   int
	LogPath   string
	DmesgPath string
}

func (s Success) AttemptNum() int                   { return s.Attempt }
func (s Success) Logs() (logPath, dmesgPath string) { return s.LogPath, s.DmesgPath }
func (s Success) String() string {
	return fmt.Sprintf("completed (attempt %d, exit %d)", s.Attempt, s.ExitCode)
}

func (t TimedOut) AttemptNum() int                   { return t.Attempt }
func (t TimedOut) Logs() (logPath, dmesgPath string) { return t.LogPath, t.DmesgPath }
func (t TimedOut) String() string                    { return fmt.Sprintf("timeout (attempt %d)", t.Attempt) }

// TrialResult collects every attempt of one trial in order. Only the last
// outcome can be a Success.
type TrialResult struct {
	Trial    int
	Slot     int
	Outcomes []Outcome
}

// Completed reports whether the trial produced a canonical log.
func (r *TrialResult) Completed() bool {
	if len(r.Outcomes) == 0 {
		return false
	}
	_, ok := r.Outcomes[len(r.Outcomes)-1].(Success)
	return ok
}

// Timeouts returns how many attempts were killed.
func (r *TrialResult) Timeouts() int {
	n := 0
	for _, o := range r.Outcomes {
		if _, ok := o.(TimedOut); ok {
			n++
		}
	}
	return n
}
