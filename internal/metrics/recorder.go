package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultRejected ResultLabel = "rejected"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
)

// Recorder receives command and dispatch observations. NoopRecorder is used
// when metrics are not configured.
type Recorder interface {
	ObserveCommand(name string, d time.Duration, err error)
	IncCommandSkipped(name string)
	ObserveDispatch(d time.Duration, result ResultLabel)
	SetDispatchInFlight(inFlight bool)
}

type NoopRecorder struct{}

func (NoopRecorder) ObserveCommand(string, time.Duration, error) {}
func (NoopRecorder) IncCommandSkipped(string)                    {}
func (NoopRecorder) ObserveDispatch(time.Duration, ResultLabel)  {}
func (NoopRecorder) SetDispatchInFlight(bool)                    {}
