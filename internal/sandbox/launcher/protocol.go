// Package launcher is the child side of a run. The parent starts the
// sandbox-init binary, which calls Main; Main applies limits, redirects the
// standard streams, drops privileges, loads the syscall filter and finally
// replaces itself with the target program.
package launcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"ojbox/internal/sandbox/result"
	"ojbox/internal/sandbox/spec"
)

// StatusFD is the descriptor of the status pipe inside the launcher.
// The parent passes it as the first extra file.
const StatusFD = 3

// Request is written by the parent to the launcher's stdin as one JSON document.
type Request struct {
	RunID  string               `json:"run_id"`
	Config spec.ExecutionConfig `json:"config"`
}

// Fault is what the launcher writes to the status pipe when a step fails.
type Fault struct {
	SetupError result.SetupError `json:"setup_error"`
	Message    string            `json:"message"`
}

func (f Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.SetupError, f.Message)
}

// WriteRequest encodes req onto w.
func WriteRequest(w io.Writer, req Request) error {
	return json.NewEncoder(w).Encode(req)
}

// ReadRequest decodes one request from r.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// Status is everything the launcher wrote before exec closed the pipe.
// Right before exec it reports its own peak RSS; a failing step adds a Fault.
type Status struct {
	// LauncherMaxRSS is the launcher's peak resident size in bytes, zero
	// when it never reached exec.
	LauncherMaxRSS int64
	Fault          *Fault
}

type statusRecord struct {
	SetupError     result.SetupError `json:"setup_error"`
	Message        string            `json:"message"`
	LauncherMaxRSS int64             `json:"launcher_max_rss"`
}

// ReadStatus drains the status pipe until the launcher's copy is closed.
func ReadStatus(r io.Reader) (Status, error) {
	var st Status
	dec := json.NewDecoder(r)
	for {
		var rec statusRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return st, nil
			}
			return st, fmt.Errorf("decode status record: %w", err)
		}
		if rec.LauncherMaxRSS > 0 {
			st.LauncherMaxRSS = rec.LauncherMaxRSS
		}
		if rec.SetupError != result.SetupSuccess {
			st.Fault = &Fault{SetupError: rec.SetupError, Message: rec.Message}
		}
	}
}
