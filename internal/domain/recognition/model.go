package recognition

// DefaultThreshold is the acceptance threshold on the recognizer distance.
const DefaultThreshold = 70.0

// UnknownName labels every face that is not accepted.
const UnknownName = "Unknown"

// Status describes the loaded model against the registry.
type Status int

const (
	// StatusFresh means the model was trained on exactly the registry set.
	StatusFresh Status = iota
	// StatusStale means the sets diverge; only identities in both are trusted.
	StatusStale
)

func (s Status) String() string {
	if s == StatusFresh {
		return "fresh"
	}
	return "stale"
}

// Outcome is the decision for one face.
type Outcome string

const (
	OutcomeAccepted   Outcome = "accepted"
	OutcomeRejected   Outcome = "rejected"
	OutcomeUnresolved Outcome = "unresolved"
)

// Match is the result of recognising one face.
type Match struct {
	IdentityID int64
	Name       string
	Distance   float64
	Outcome    Outcome
}

// Accepted reports whether the match identifies a registered student.
func (m Match) Accepted() bool {
	return m.Outcome == OutcomeAccepted
}

// Accept is the threshold rule: a distance strictly below threshold passes.
func Accept(distance, threshold float64) bool {
	return distance < threshold
}

// Decide combines the threshold rule with trust in the predicted identity.
func Decide(distance, threshold float64, trusted bool) Outcome {
	switch {
	case !Accept(distance, threshold):
		return OutcomeRejected
	case !trusted:
		return OutcomeUnresolved
	default:
		return OutcomeAccepted
	}
}
