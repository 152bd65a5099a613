package application

// Status is the closed set of pipeline states for an application. Transitions
// are validated against the table below; arbitrary strings are rejected at
// the boundary.
type Status string

const (
	StatusPending            Status = "pending"
	StatusReviewing          Status = "reviewing"
	StatusShortlisted        Status = "shortlisted"
	StatusInterviewScheduled Status = "interview-scheduled"
	StatusInterviewed        Status = "interviewed"
	StatusSecondRound        Status = "second-round"
	StatusFinalRound         Status = "final-round"
	StatusOfferMade          Status = "offer-made"
	StatusOfferAccepted      Status = "offer-accepted"
	StatusOfferDeclined      Status = "offer-declined"
	StatusHired              Status = "hired"
	StatusRejected           Status = "rejected"
	StatusWithdrawn          Status = "withdrawn"
)

// All enumerates every known status in pipeline order.
var All = []Status{
	StatusPending,
	StatusReviewing,
	StatusShortlisted,
	StatusInterviewScheduled,
	StatusInterviewed,
	StatusSecondRound,
	StatusFinalRound,
	StatusOfferMade,
	StatusOfferAccepted,
	StatusOfferDeclined,
	StatusHired,
	StatusRejected,
	StatusWithdrawn,
}

// forward lists the employer-driven forward edges of the workflow graph.
// Rejection and the direct-hire shortcut are handled in CanTransition so the
// table stays readable.
var forward = map[Status][]Status{
	StatusPending:            {StatusReviewing, StatusShortlisted, StatusInterviewScheduled},
	StatusReviewing:          {StatusShortlisted, StatusInterviewScheduled},
	StatusShortlisted:        {StatusInterviewScheduled},
	StatusInterviewScheduled: {StatusInterviewScheduled, StatusInterviewed, StatusSecondRound},
	StatusInterviewed:        {StatusSecondRound, StatusFinalRound, StatusOfferMade},
	StatusSecondRound:        {StatusInterviewScheduled, StatusFinalRound, StatusOfferMade},
	StatusFinalRound:         {StatusOfferMade},
	StatusOfferMade:          {StatusOfferMade, StatusOfferAccepted, StatusOfferDeclined},
	StatusOfferAccepted:      {StatusHired},
}

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	for _, known := range All {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further employer-driven transition is permitted
// from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusHired, StatusRejected, StatusWithdrawn, StatusOfferDeclined:
		return true
	}
	return false
}

// OfferBearing reports whether entering s requires an offer sub-record.
func (s Status) OfferBearing() bool {
	switch s {
	case StatusOfferMade, StatusOfferAccepted, StatusOfferDeclined, StatusHired:
		return true
	}
	return false
}

// CanTransition reports whether the employer-driven edge from -> to exists.
// Every non-terminal state may move to rejected, and the direct-hire shortcut
// from any non-terminal state is kept intentionally (recruiters hire without
// a recorded offer round in the upstream product).
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.Terminal() {
		return false
	}
	if to == StatusRejected || to == StatusHired {
		return true
	}
	if to == StatusWithdrawn {
		// Withdrawal is applicant-driven; see CanWithdraw.
		return false
	}
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanWithdraw reports whether an applicant may retract an application in
// state s. Retraction is refused once an offer is on the table or the
// application already reached hired/rejected.
func CanWithdraw(s Status) bool {
	if s.Terminal() {
		return false
	}
	return s != StatusOfferMade
}
