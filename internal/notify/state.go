package notify

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the dispatcher's lifecycle position. Reason is set only for
// PhaseFailed.
type State struct {
	Phase  Phase  `json:"phase"`
	Reason string `json:"reason,omitempty"`
}

func (s State) String() string {
	if s.Reason != "" {
		return s.Phase.String() + ": " + s.Reason
	}
	return s.Phase.String()
}

// Outcome describes one Send call. Err is nil on success and otherwise one
// of ErrInvalidArgument, ErrAlreadyInProgress, *RemoteRejectedError or
// *TransportError.
type Outcome struct {
	AttemptID string `json:"attempt_id,omitempty"`
	Phase     Phase  `json:"phase"`
	Status    string `json:"status"`
	Err       error  `json:"-"`
}

func (o Outcome) Succeeded() bool {
	return o.Phase == PhaseSucceeded
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
