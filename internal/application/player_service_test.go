package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedInvitation(store *accountStoreFake, id, email, token string, expiresAt time.Time) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.invitations[id] = Invitation{
		ID:        id,
		Email:     email,
		InviterID: "inviter",
		Token:     token,
		Status:    InvitationPending,
		SentAt:    testNow.Add(-time.Hour),
		ExpiresAt: expiresAt,
	}
}

func newPlayerServiceFixture() (*PlayerService, *accountStoreFake) {
	store := newAccountStoreFake()
	svc := NewPlayerService(store, plainHasher, plainVerifier, sequence("player"), fixedClock(testNow))
	return svc, store
}

func validRegistration(token string) RegisterPlayerParams {
	return RegisterPlayerParams{
		Name:            "Ana Souza",
		Email:           "  Ana@Example.com ",
		Sex:             "F",
		BirthDate:       time.Date(1995, 6, 1, 0, 0, 0, 0, time.UTC),
		Password:        "segredo123",
		InvitationToken: token,
	}
}

func TestPlayerService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("validates required attributes", func(t *testing.T) {
		svc, _ := newPlayerServiceFixture()

		_, err := svc.Register(ctx, RegisterPlayerParams{
			Email:     "not-an-email",
			BirthDate: testNow.Add(time.Hour),
			Password:  "short",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"nome", "email", "sexo", "data_nascimento", "senha", "token_convite"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("creates player and accepts invitation", func(t *testing.T) {
		svc, store := newPlayerServiceFixture()
		seedInvitation(store, "inv-1", "ana@example.com", "tok-1", testNow.Add(time.Hour))

		player, err := svc.Register(ctx, validRegistration("tok-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if player.Email != "ana@example.com" {
			t.Fatalf("expected normalized email, got %q", player.Email)
		}
		if player.SkillLevel != DefaultSkillLevel {
			t.Fatalf("expected default skill level, got %q", player.SkillLevel)
		}
		if store.passwordHash(player.ID) != "hashed:segredo123" {
			t.Fatalf("expected hashed password to be stored")
		}

		invitation := store.invitation("inv-1")
		if invitation.Status != InvitationAccepted {
			t.Fatalf("expected invitation to be accepted, got %s", invitation.Status)
		}
		if invitation.AcceptedPlayerID == nil || *invitation.AcceptedPlayerID != player.ID {
			t.Fatalf("expected invitation to reference the new player")
		}
	})

	t.Run("token reuse is rejected", func(t *testing.T) {
		svc, store := newPlayerServiceFixture()
		seedInvitation(store, "inv-1", "ana@example.com", "tok-1", testNow.Add(time.Hour))

		if _, err := svc.Register(ctx, validRegistration("tok-1")); err != nil {
			t.Fatalf("first registration: %v", err)
		}

		second := validRegistration("tok-1")
		second.Email = "outra@example.com"
		_, err := svc.Register(ctx, second)
		if !errors.Is(err, ErrInvalidInvitation) {
			t.Fatalf("expected ErrInvalidInvitation, got %v", err)
		}
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		svc, store := newPlayerServiceFixture()
		seedInvitation(store, "inv-1", "ana@example.com", "tok-1", testNow.Add(-time.Minute))

		_, err := svc.Register(ctx, validRegistration("tok-1"))
		if !errors.Is(err, ErrInvalidInvitation) {
			t.Fatalf("expected ErrInvalidInvitation, got %v", err)
		}
	})

	t.Run("email already registered", func(t *testing.T) {
		svc, store := newPlayerServiceFixture()
		store.addPlayer(Player{ID: "existing", Email: "ana@example.com"}, "hashed:x")
		seedInvitation(store, "inv-1", "ana@example.com", "tok-1", testNow.Add(time.Hour))

		_, err := svc.Register(ctx, validRegistration("tok-1"))
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		if store.invitation("inv-1").Status != InvitationPending {
			t.Fatalf("expected invitation to stay pending")
		}
	})
}

func TestPlayerService_UpdateSelf(t *testing.T) {
	ctx := context.Background()
	svc, store := newPlayerServiceFixture()
	store.addPlayer(Player{ID: "p1", Name: "Ana", Email: "ana@example.com", SkillLevel: DefaultSkillLevel}, "hashed:x")

	t.Run("rejects blank name", func(t *testing.T) {
		blank := " "
		_, err := svc.UpdateSelf(ctx, playerPrincipal("p1"), PlayerUpdate{Name: &blank})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("normalizes positions", func(t *testing.T) {
		level := "Intermediário"
		positions := []string{" Levantador", "levantador", "", "Líbero"}

		updated, err := svc.UpdateSelf(ctx, playerPrincipal("p1"), PlayerUpdate{SkillLevel: &level, PreferredPositions: &positions})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.SkillLevel != level {
			t.Fatalf("expected skill level %q, got %q", level, updated.SkillLevel)
		}
		if len(updated.PreferredPositions) != 2 || updated.PreferredPositions[0] != "Levantador" || updated.PreferredPositions[1] != "Líbero" {
			t.Fatalf("unexpected positions %v", updated.PreferredPositions)
		}
		if updated.Name != "Ana" {
			t.Fatalf("expected name to be preserved, got %q", updated.Name)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		_, err := svc.UpdateSelf(ctx, Principal{}, PlayerUpdate{})
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})
}

func TestPlayerService_GetPublicProfile(t *testing.T) {
	ctx := context.Background()
	svc, store := newPlayerServiceFixture()
	store.addPlayer(Player{ID: "p1", Name: "Ana", Email: "ana@example.com"}, "hashed:x")

	profile, err := svc.GetPublicProfile(ctx, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ID != "p1" || profile.Name != "Ana" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	if _, err := svc.GetPublicProfile(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlayerService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, store := newPlayerServiceFixture()
	store.addPlayer(Player{ID: "p1", Email: "ana@example.com"}, "hashed:antiga123")

	t.Run("wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, ChangePasswordParams{
			Principal:       playerPrincipal("p1"),
			CurrentPassword: "errada",
			NewPassword:     "novasenha123",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("short new password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, ChangePasswordParams{
			Principal:       playerPrincipal("p1"),
			CurrentPassword: "antiga123",
			NewPassword:     "curta",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("stores the new hash", func(t *testing.T) {
		err := svc.ChangePassword(ctx, ChangePasswordParams{
			Principal:       playerPrincipal("p1"),
			CurrentPassword: "antiga123",
			NewPassword:     "novasenha123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.passwordHash("p1") != "hashed:novasenha123" {
			t.Fatalf("expected password hash to change")
		}
	})
}
