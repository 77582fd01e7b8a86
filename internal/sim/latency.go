package sim

// LatencyModel computes delays for simulation events. Delays are
// expressed by scheduling future events, never by blocking: control
// returns to the event loop immediately.
type LatencyModel interface {
	// SubmissionDelay is the lag from intent creation to mechanism
	// submission, in milliseconds.
	SubmissionDelay() int64
	// FillDelay is the lag from match to fill confirmation, in
	// milliseconds.
	FillDelay() int64
}

// ConstantLatency applies fixed delays.
type ConstantLatency struct {
	SubmissionMS int64
	FillMS       int64
}

func (c ConstantLatency) SubmissionDelay() int64 { return c.SubmissionMS }

func (c ConstantLatency) FillDelay() int64 { return c.FillMS }
