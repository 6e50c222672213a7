// Package buildinfo assigns a per-Compile-call identity, mirroring the
// BuildDate/GitCommit build-identity variables this codebase's entry point
// otherwise carries. The ID is attached to Compile's own log lines only;
// it never reaches a backend's emitted text, since that text must stay a
// pure function of the LIR program and options for golden-file comparisons
// to hold.
package buildinfo

import (
	"time"

	"github.com/google/uuid"
)

// Info identifies a single Compile invocation.
type Info struct {
	BuildID   string
	Timestamp time.Time
}

// New mints a fresh Info. ts is supplied by the caller rather than taken
// from time.Now() internally so tests can produce reproducible output.
func New(ts time.Time) Info {
	return Info{
		BuildID:   uuid.NewString(),
		Timestamp: ts,
	}
}
