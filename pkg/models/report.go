package models

import "strings"

// Outcome is the outcome attribute of a test result as written by the test runner.
type Outcome string

const (
	OutcomePassed  Outcome = "Passed"
	OutcomeFailed  Outcome = "Failed"
	OutcomeUnknown Outcome = "Unknown"
)

// Class returns the CSS class used to style the outcome.
// Anything other than Passed or Failed gets the neutral style.
func (o Outcome) Class() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	default:
		return "other"
	}
}

// Placeholders for attributes missing from a result record.
const (
	PlaceholderName     = "Unknown"
	PlaceholderDuration = "N/A"
	PlaceholderTime     = "N/A"
	PlaceholderOutput   = "No output"
)

// descriptionMarker prefixes the human-readable test description in captured output.
const descriptionMarker = "Starting Test:"

// TestResult represents a single test result
type TestResult struct {
	Name         string  `json:"name"`
	Outcome      Outcome `json:"outcome"`
	Duration     string  `json:"duration"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time,omitempty"`
	StdOut       string  `json:"stdout,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	StackTrace   string  `json:"stack_trace,omitempty"`
	TestID       string  `json:"test_id,omitempty"`
	ExecutionID  string  `json:"execution_id,omitempty"`
	ComputerName string  `json:"computer_name,omitempty"`
}

// Failed reports whether the result has the Failed outcome.
func (t TestResult) Failed() bool {
	return t.Outcome == OutcomeFailed
}

// Output returns the captured standard output, or a placeholder when there is none.
func (t TestResult) Output() string {
	if t.StdOut == "" {
		return PlaceholderOutput
	}
	return t.StdOut
}

// Description extracts the human-readable description logged by the test
// ("Starting Test: <description>"). It returns "" when the output has none.
func (t TestResult) Description() string {
	for _, line := range strings.Split(t.StdOut, "\n") {
		idx := strings.Index(line, descriptionMarker)
		if idx < 0 {
			continue
		}
		desc := strings.TrimSpace(line[idx+len(descriptionMarker):])
		if desc != "" {
			return desc
		}
	}
	return ""
}

// SearchText is the text used to find screenshots for the result: the
// description from the captured output, falling back to the qualified name.
func (t TestResult) SearchText() string {
	if desc := t.Description(); desc != "" {
		return desc
	}
	return t.Name
}

// Summary holds the run counters
type Summary struct {
	Total        int `json:"total"`
	Executed     int `json:"executed"`
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Error        int `json:"error"`
	Inconclusive int `json:"inconclusive"`
	// FromCounters is true when the counts were read from the file's counters block
	// rather than derived from the results.
	FromCounters bool `json:"from_counters"`
}

// RunInfo describes the test run the results belong to.
type RunInfo struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Start   string `json:"start,omitempty"`
	Finish  string `json:"finish,omitempty"`
}

// Report represents a parsed test result file
type Report struct {
	Run     RunInfo      `json:"run"`
	Summary Summary      `json:"summary"`
	Results []TestResult `json:"results"`
}

// HasFailures returns true if the report contains any failures
func (r *Report) HasFailures() bool {
	return r.Summary.Failed > 0 || len(r.FailedResults()) > 0
}

// FailedResults returns all failed results in encounter order
func (r *Report) FailedResults() []TestResult {
	var failed []TestResult
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}
