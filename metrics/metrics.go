// Package metrics records unlock-flow counters and step latencies.
package metrics

import "time"

// Event and step names recorded by the flow.
const (
	EventAttempt = "attempt"
	EventSuccess = "success"
	EventFailure = "failure"

	StepChallenge = "challenge"
	StepSign      = "sign"
	StepSubmit    = "submit"
	StepUnlock    = "unlock"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
