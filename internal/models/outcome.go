package models

// SyncOutcome is the result of one provider's sync task.
type SyncOutcome struct {
	Provider  string
	Fetched   int
	Converted int
	Err       string
}

// Failed reports whether the task ended with an error (soft or hard).
func (o SyncOutcome) Failed() bool { return o.Err != "" }

// ValidityOutcome is the result of probing one active stream.
type ValidityOutcome struct {
	StreamID int64
	Valid    bool
	Reason   string
}
