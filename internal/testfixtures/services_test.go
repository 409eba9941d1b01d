package testfixtures

import (
	"context"
	"testing"

	"github.com/example/galera-volei/internal/application"
	"github.com/example/galera-volei/internal/store"
)

func TestServiceFactoryRegistersPlayers(t *testing.T) {
	backends := map[string]func(testing.TB) *store.Store{
		"memory": func(testing.TB) *store.Store { return nil },
		"sqlite": NewSQLiteStore,
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			factory := NewServiceFactory()
			svc, err := factory.Build(open(t))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}

			ctx := context.Background()
			player, err := factory.RegisterPlayer(ctx, svc, "Ana", "ana@example.com", "segredo123")
			if err != nil {
				t.Fatalf("RegisterPlayer: %v", err)
			}
			// The invitation consumes the first generated id.
			if player.ID != IDFor("id", 2) {
				t.Fatalf("expected second generated id, got %q", player.ID)
			}
			if !player.CreatedAt.Equal(factory.Clock.Now()) {
				t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), player.CreatedAt)
			}
			if factory.Outbox.Sent() != 1 {
				t.Fatalf("expected one invitation email, got %d", factory.Outbox.Sent())
			}

			token, err := svc.Auth.Login(ctx, "ana@example.com", "segredo123")
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			principal, err := svc.Auth.ValidateSession(ctx, token.Token)
			if err != nil || principal.PlayerID != player.ID {
				t.Fatalf("ValidateSession: %+v %v", principal, err)
			}
		})
	}
}

func TestFixturesProduceConsistentModels(t *testing.T) {
	player := NewPlayerFixture(WithPlayerEmail("bia@example.com"))
	if player.Application().Email != "bia@example.com" || player.Persistence().PasswordHash == "" {
		t.Fatalf("unexpected player fixture %+v", player)
	}

	venue := NewVenueFixture(WithVenueCity("Recife", "PE"))
	match := NewMatchFixture(WithMatchVenue(venue.ID), WithMatchOrganizer(player.ID), WithMatchCapacity(2))
	app := match.Application()
	if app.VenueID != venue.ID || app.OrganizerID != player.ID || app.MaxPlayers != 2 {
		t.Fatalf("unexpected match fixture %+v", app)
	}
	if app.Status != application.MatchOpen || !app.StartsAt.After(ReferenceTime()) {
		t.Fatalf("expected an open future match, got %+v", app)
	}
}
