package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Op     string `json:"op"`
	Target string `json:"target,omitempty"` // e.g. "#3" or "#3.Name"
	Error  string `json:"error,omitempty"`  // error code when the step failed as expected
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Text is the final document in exchange format.
	Text string `json:"-"`

	// Fingerprint is the final document fingerprint.
	Fingerprint string `json:"fingerprint"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(op, target, code string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    len(r.Trace) + 1,
		Op:     op,
		Target: target,
		Error:  code,
	})
}
