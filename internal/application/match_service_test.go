package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMatchService_CreateMatch(t *testing.T) {
	t.Run("requires an authenticated organizer", func(t *testing.T) {
		svc, _ := newMatchServiceFixture()

		_, err := svc.CreateMatch(context.Background(), Principal{}, validMatchInput(12))
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		svc, _ := newMatchServiceFixture()

		_, err := svc.CreateMatch(context.Background(), organizerPrincipal(), MatchInput{
			Title:      "  ",
			StartsAt:   testNow.Add(-time.Hour),
			MaxPlayers: 1,
			CostCents:  -1,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"titulo", "id_local", "data_hora", "duracao_estimada_min", "tipo", "categoria", "max_jogadores", "custo_por_jogador"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("reports unknown venue as a field error", func(t *testing.T) {
		svc, _ := newMatchServiceFixture()
		input := validMatchInput(12)
		input.VenueID = "missing"

		_, err := svc.CreateMatch(context.Background(), organizerPrincipal(), input)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["id_local"]; !ok {
			t.Fatalf("expected id_local validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("stores an open match with zero confirmed", func(t *testing.T) {
		svc, store := newMatchServiceFixture()
		description := "  traga água  "
		input := validMatchInput(12)
		input.Description = &description

		match, err := svc.CreateMatch(context.Background(), organizerPrincipal(), input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if match.Status != MatchOpen || match.ConfirmedCount != 0 {
			t.Fatalf("expected open match with no confirmed players, got %+v", match)
		}
		if match.OrganizerID != "organizer" {
			t.Fatalf("expected organizer to be the caller, got %s", match.OrganizerID)
		}
		if match.Description == nil || *match.Description != "traga água" {
			t.Fatalf("expected trimmed description, got %v", match.Description)
		}
		if stored := store.match(match.ID); stored.ID == "" {
			t.Fatalf("expected match to be persisted")
		}
	})
}

func TestMatchService_ListMatches(t *testing.T) {
	ctx := context.Background()
	svc, store := newMatchServiceFixture()
	store.addVenue(Venue{ID: "venue-2", Name: "Arena Praia", City: "Olinda", State: "PE"})

	later := validMatchInput(12)
	later.StartsAt = testNow.Add(72 * time.Hour)
	laterMatch, err := svc.CreateMatch(ctx, organizerPrincipal(), later)
	if err != nil {
		t.Fatalf("create later match: %v", err)
	}

	sooner := validMatchInput(12)
	sooner.StartsAt = testNow.Add(24 * time.Hour)
	soonerMatch, err := svc.CreateMatch(ctx, organizerPrincipal(), sooner)
	if err != nil {
		t.Fatalf("create sooner match: %v", err)
	}

	beach := validMatchInput(12)
	beach.VenueID = "venue-2"
	beach.StartsAt = testNow.Add(24 * time.Hour)
	beachMatch, err := svc.CreateMatch(ctx, organizerPrincipal(), beach)
	if err != nil {
		t.Fatalf("create beach match: %v", err)
	}

	t.Run("orders by start time", func(t *testing.T) {
		matches, err := svc.ListMatches(ctx, MatchFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(matches))
		}
		if matches[2].ID != laterMatch.ID {
			t.Fatalf("expected latest match last, got %s", matches[2].ID)
		}
	})

	t.Run("filters by city", func(t *testing.T) {
		matches, err := svc.ListMatches(ctx, MatchFilter{City: "olinda"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 1 || matches[0].ID != beachMatch.ID {
			t.Fatalf("expected only the beach match, got %+v", matches)
		}
	})

	t.Run("unknown city yields nothing", func(t *testing.T) {
		matches, err := svc.ListMatches(ctx, MatchFilter{City: "Natal"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("expected no matches, got %d", len(matches))
		}
	})

	t.Run("filters by calendar day", func(t *testing.T) {
		day := testNow.Add(24 * time.Hour)
		matches, err := svc.ListMatches(ctx, MatchFilter{Date: &day})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("expected 2 matches on that day, got %d", len(matches))
		}
		for _, match := range matches {
			if match.ID != soonerMatch.ID && match.ID != beachMatch.ID {
				t.Fatalf("unexpected match %s", match.ID)
			}
		}
	})

	t.Run("filters by status", func(t *testing.T) {
		matches, err := svc.ListMatches(ctx, MatchFilter{Status: MatchFull})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("expected no full matches, got %d", len(matches))
		}
	})
}

func TestMatchService_UpdateMatch(t *testing.T) {
	ctx := context.Background()

	newMatch := func(t *testing.T, maxPlayers int) (*MatchService, *matchStoreFake, Match) {
		t.Helper()
		svc, store := newMatchServiceFixture()
		match, err := svc.CreateMatch(ctx, organizerPrincipal(), validMatchInput(maxPlayers))
		if err != nil {
			t.Fatalf("create match: %v", err)
		}
		return svc, store, match
	}

	t.Run("only the organizer may edit", func(t *testing.T) {
		svc, _, match := newMatch(t, 12)
		title := "Outro título"

		_, err := svc.UpdateMatch(ctx, playerPrincipal("intruder"), match.ID, MatchUpdate{Title: &title})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("missing match", func(t *testing.T) {
		svc, _ := newMatchServiceFixture()
		_, err := svc.UpdateMatch(ctx, organizerPrincipal(), "missing", MatchUpdate{})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("applies partial changes and bumps version", func(t *testing.T) {
		svc, _, match := newMatch(t, 12)
		title := "Vôlei de sexta"
		cost := int64(2000)

		updated, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{Title: &title, CostCents: &cost})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Title != title || updated.CostCents != cost {
			t.Fatalf("expected changes to be applied, got %+v", updated)
		}
		if updated.MaxPlayers != match.MaxPlayers {
			t.Fatalf("expected untouched fields to be preserved")
		}
		if updated.Version != match.Version+1 {
			t.Fatalf("expected version bump, got %d", updated.Version)
		}
	})

	t.Run("capacity cannot drop below confirmed", func(t *testing.T) {
		svc, store, match := newMatch(t, 4)
		confirmPlayers(t, svc, match.ID, "p1", "p2", "p3")
		two := 2

		_, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{MaxPlayers: &two})
		if !errors.Is(err, ErrCapacityBelowConfirmed) {
			t.Fatalf("expected ErrCapacityBelowConfirmed, got %v", err)
		}
		if store.match(match.ID).MaxPlayers != 4 {
			t.Fatalf("expected capacity to be unchanged")
		}
	})

	t.Run("lowering capacity to confirmed count fills the match", func(t *testing.T) {
		svc, _, match := newMatch(t, 4)
		confirmPlayers(t, svc, match.ID, "p1", "p2")
		two := 2

		updated, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{MaxPlayers: &two})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Status != MatchFull {
			t.Fatalf("expected Lotada, got %s", updated.Status)
		}

		six := 6
		reopened, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{MaxPlayers: &six})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reopened.Status != MatchOpen {
			t.Fatalf("expected AbertaParaAdesao after raising capacity, got %s", reopened.Status)
		}
	})

	t.Run("lifecycle transitions", func(t *testing.T) {
		svc, _, match := newMatch(t, 12)

		finished := MatchFinished
		if _, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{Status: &finished}); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}

		inProgress := MatchInProgress
		started, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{Status: &inProgress})
		if err != nil {
			t.Fatalf("start match: %v", err)
		}
		if started.Status != MatchInProgress {
			t.Fatalf("expected EmAndamento, got %s", started.Status)
		}

		done, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{Status: &finished})
		if err != nil {
			t.Fatalf("finish match: %v", err)
		}
		if done.Status != MatchFinished {
			t.Fatalf("expected Finalizada, got %s", done.Status)
		}

		title := "late edit"
		if _, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{Title: &title}); !errors.Is(err, ErrMatchClosed) {
			t.Fatalf("expected ErrMatchClosed after finishing, got %v", err)
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		svc, _, match := newMatch(t, 12)
		bogus := MatchStatus("Adiada")

		_, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{Status: &bogus})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["status"]; !ok {
			t.Fatalf("expected status validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("surfaces concurrent modification", func(t *testing.T) {
		svc, store, match := newMatch(t, 12)
		store.updateErr = ErrConcurrentUpdate
		title := "x"

		_, err := svc.UpdateMatch(ctx, organizerPrincipal(), match.ID, MatchUpdate{Title: &title})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

// confirmPlayers enrolls each player and confirms them as the organizer.
func confirmPlayers(t *testing.T, svc *MatchService, matchID string, playerIDs ...string) []Enrollment {
	t.Helper()
	ctx := context.Background()
	out := make([]Enrollment, 0, len(playerIDs))
	for _, id := range playerIDs {
		enrollment, err := svc.RequestEnrollment(ctx, playerPrincipal(id), matchID)
		if err != nil {
			t.Fatalf("enroll %s: %v", id, err)
		}
		confirmed, err := svc.DecideEnrollment(ctx, organizerPrincipal(), matchID, enrollment.ID, EnrollmentConfirmed)
		if err != nil {
			t.Fatalf("confirm %s: %v", id, err)
		}
		out = append(out, confirmed)
	}
	return out
}
