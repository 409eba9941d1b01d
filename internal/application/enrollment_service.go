package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// RequestEnrollment records a pending enrollment of the caller in an open match.
func (s *MatchService) RequestEnrollment(ctx context.Context, principal Principal, matchID string) (enrollment Enrollment, err error) {
	if s == nil {
		err = fmt.Errorf("MatchService is nil")
		return
	}
	if s.enrollments == nil {
		err = fmt.Errorf("enrollment repository not configured")
		return
	}
	if principal.PlayerID == "" {
		err = ErrUnauthenticated
		return
	}

	logger := s.loggerWith(ctx, "RequestEnrollment", "match_id", matchID, "player_id", principal.PlayerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "enrollment request failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("enrollment_id", enrollment.ID).InfoContext(ctx, "enrollment requested")
	}()

	unlock := s.locks.Lock(matchID)
	defer unlock()

	var match Match
	match, err = s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return
	}
	if match.Status != MatchOpen {
		err = ErrMatchNotOpen
		return
	}

	if _, ferr := s.enrollments.FindActiveEnrollment(ctx, matchID, principal.PlayerID); ferr == nil {
		err = ErrDuplicateEnrollment
		return
	} else if !errors.Is(ferr, ErrNotFound) {
		err = ferr
		return
	}

	now := s.now()
	enrollment, err = s.enrollments.CreateEnrollment(ctx, Enrollment{
		ID:        s.idGenerator(),
		MatchID:   matchID,
		PlayerID:  principal.PlayerID,
		Status:    EnrollmentPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			err = ErrDuplicateEnrollment
		}
		enrollment = Enrollment{}
	}
	return
}

// ListEnrollments returns every enrollment of a match to its organizer.
func (s *MatchService) ListEnrollments(ctx context.Context, principal Principal, matchID string) ([]Enrollment, error) {
	if s == nil {
		return nil, fmt.Errorf("MatchService is nil")
	}
	if principal.PlayerID == "" {
		return nil, ErrUnauthenticated
	}

	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.OrganizerID != principal.PlayerID {
		return nil, ErrForbidden
	}

	enrollments, err := s.enrollments.ListEnrollments(ctx, matchID)
	if err != nil {
		return nil, err
	}

	out := make([]Enrollment, len(enrollments))
	copy(out, enrollments)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DecideEnrollment confirms or rejects an enrollment and keeps the match
// counters and derived status in step.
func (s *MatchService) DecideEnrollment(ctx context.Context, principal Principal, matchID, enrollmentID string, target EnrollmentStatus) (enrollment Enrollment, err error) {
	if s == nil {
		err = fmt.Errorf("MatchService is nil")
		return
	}
	if principal.PlayerID == "" {
		err = ErrUnauthenticated
		return
	}

	logger := s.loggerWith(ctx, "DecideEnrollment",
		"match_id", matchID,
		"enrollment_id", enrollmentID,
		"target_status", target,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "enrollment decision failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "enrollment decided")
	}()

	unlock := s.locks.Lock(matchID)
	defer unlock()

	var match Match
	match, err = s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return
	}
	if match.OrganizerID != principal.PlayerID {
		err = ErrForbidden
		return
	}

	enrollment, err = s.enrollments.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		enrollment = Enrollment{}
		return
	}
	if enrollment.MatchID != matchID {
		enrollment = Enrollment{}
		err = ErrNotFound
		return
	}

	if target != EnrollmentConfirmed && target != EnrollmentRejected {
		enrollment = Enrollment{}
		err = NewValidationError("status", "status deve ser Confirmada ou Rejeitada")
		return
	}
	if !match.Status.acceptsDecisions() {
		enrollment = Enrollment{}
		err = ErrMatchClosed
		return
	}

	var delta int
	if delta, err = decisionDelta(enrollment.Status, target); err != nil {
		enrollment = Enrollment{}
		return
	}
	if enrollment.Status == target {
		return
	}

	now := s.now()
	updated, err := applyConfirmedDelta(match, delta)
	if err != nil {
		enrollment = Enrollment{}
		return
	}
	if delta != 0 {
		updated.UpdatedAt = now
	}
	enrollment.Status = target
	enrollment.UpdatedAt = now

	if _, err = s.enrollments.SaveTransition(ctx, updated, enrollment); err != nil {
		enrollment = Enrollment{}
		return
	}
	return
}

// CancelOwnEnrollment withdraws the caller's active enrollment from a match.
func (s *MatchService) CancelOwnEnrollment(ctx context.Context, principal Principal, matchID string) (err error) {
	if s == nil {
		return fmt.Errorf("MatchService is nil")
	}
	if principal.PlayerID == "" {
		return ErrUnauthenticated
	}

	logger := s.loggerWith(ctx, "CancelOwnEnrollment", "match_id", matchID, "player_id", principal.PlayerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "enrollment withdrawal failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "enrollment withdrawn")
	}()

	unlock := s.locks.Lock(matchID)
	defer unlock()

	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	active, err := s.enrollments.FindActiveEnrollment(ctx, matchID, principal.PlayerID)
	if err != nil {
		return err
	}
	if match.Status.IsTerminal() {
		return ErrMatchClosed
	}

	delta := 0
	if active.Status == EnrollmentConfirmed {
		delta = -1
	}
	updated, err := applyConfirmedDelta(match, delta)
	if err != nil {
		return err
	}
	if delta != 0 {
		updated.UpdatedAt = s.now()
	}

	_, err = s.enrollments.DeleteTransition(ctx, updated, active.ID)
	return err
}
