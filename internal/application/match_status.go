package application

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchOpen       MatchStatus = "AbertaParaAdesao"
	MatchFull       MatchStatus = "Lotada"
	MatchInProgress MatchStatus = "EmAndamento"
	MatchFinished   MatchStatus = "Finalizada"
	MatchCancelled  MatchStatus = "Cancelada"
)

// ParseMatchStatus validates a wire value.
func ParseMatchStatus(value string) (MatchStatus, bool) {
	status := MatchStatus(value)
	switch status {
	case MatchOpen, MatchFull, MatchInProgress, MatchFinished, MatchCancelled:
		return status, true
	}
	return "", false
}

// IsTerminal reports whether no further changes are accepted.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchFinished || s == MatchCancelled
}

// acceptsDecisions reports whether the organizer may still confirm or reject players.
func (s MatchStatus) acceptsDecisions() bool {
	return s == MatchOpen || s == MatchFull
}

// EnrollmentStatus is the state of a single enrollment.
type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "Pendente"
	EnrollmentConfirmed EnrollmentStatus = "Confirmada"
	EnrollmentRejected  EnrollmentStatus = "Rejeitada"
)

// ParseEnrollmentStatus validates a wire value.
func ParseEnrollmentStatus(value string) (EnrollmentStatus, bool) {
	status := EnrollmentStatus(value)
	switch status {
	case EnrollmentPending, EnrollmentConfirmed, EnrollmentRejected:
		return status, true
	}
	return "", false
}

// capacityStatus derives open/full from the counters. Other states are kept.
func capacityStatus(status MatchStatus, confirmed, maxPlayers int) MatchStatus {
	if status != MatchOpen && status != MatchFull {
		return status
	}
	if confirmed >= maxPlayers {
		return MatchFull
	}
	return MatchOpen
}

// organizerTransition checks a status requested through a match update.
// Open and full are derived from capacity and cannot be requested directly.
func organizerTransition(from, to MatchStatus) error {
	if from == to {
		return nil
	}
	if from.IsTerminal() {
		return ErrMatchClosed
	}
	switch to {
	case MatchInProgress:
		if from == MatchOpen || from == MatchFull {
			return nil
		}
	case MatchFinished:
		if from == MatchInProgress {
			return nil
		}
	case MatchCancelled:
		return nil
	}
	return ErrInvalidTransition
}

// decisionDelta returns the change in confirmed count caused by moving an
// enrollment from current to target. Repeating a decision is a no-op.
func decisionDelta(current, target EnrollmentStatus) (int, error) {
	if current == target {
		return 0, nil
	}
	switch {
	case current == EnrollmentPending && target == EnrollmentConfirmed:
		return 1, nil
	case current == EnrollmentPending && target == EnrollmentRejected:
		return 0, nil
	case current == EnrollmentConfirmed && target == EnrollmentRejected:
		return -1, nil
	}
	return 0, ErrInvalidTransition
}

// applyConfirmedDelta adjusts the confirmed count, keeping it within
// [0, MaxPlayers], and recomputes the derived status.
func applyConfirmedDelta(match Match, delta int) (Match, error) {
	count := match.ConfirmedCount + delta
	if delta > 0 && count > match.MaxPlayers {
		return Match{}, ErrMatchFull
	}
	if count < 0 {
		count = 0
	}
	match.ConfirmedCount = count
	match.Status = capacityStatus(match.Status, count, match.MaxPlayers)
	return match, nil
}
