package appraisal

// Recorder receives workflow and read-plan events for metrics.
type Recorder interface {
	Transition(name Transition, outcome string)
	Degraded(branch string)
}

type nopRecorder struct{}

func (nopRecorder) Transition(Transition, string) {}
func (nopRecorder) Degraded(string)               {}
