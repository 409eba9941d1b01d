package application

import (
	"context"
	"errors"
	"testing"
)

type venueRepoStub struct {
	createErr error
	created   Venue
	list      []Venue
	listCity  string
}

func (r *venueRepoStub) CreateVenue(ctx context.Context, venue Venue) (Venue, error) {
	if r.createErr != nil {
		return Venue{}, r.createErr
	}
	r.created = venue
	return venue, nil
}

func (r *venueRepoStub) GetVenue(ctx context.Context, id string) (Venue, error) {
	if r.created.ID == id && id != "" {
		return r.created, nil
	}
	return Venue{}, ErrNotFound
}

func (r *venueRepoStub) ListVenues(ctx context.Context, city string) ([]Venue, error) {
	r.listCity = city
	return r.list, nil
}

func TestVenueService_CreateVenue(t *testing.T) {
	ctx := context.Background()

	t.Run("validates required attributes", func(t *testing.T) {
		svc := NewVenueService(&venueRepoStub{}, sequence("venue"), fixedClock(testNow))

		_, err := svc.CreateVenue(ctx, playerPrincipal("p1"), VenueInput{Name: " ", State: "Pernambuco"})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"nome", "cidade", "estado"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("normalizes and stores", func(t *testing.T) {
		repo := &venueRepoStub{}
		svc := NewVenueService(repo, sequence("venue"), fixedClock(testNow))
		blank := "   "

		venue, err := svc.CreateVenue(ctx, playerPrincipal("p1"), VenueInput{
			Name:      " Ginásio Central ",
			City:      "Recife",
			State:     "pe",
			CourtType: &blank,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if venue.Name != "Ginásio Central" || venue.State != "PE" {
			t.Fatalf("expected normalized venue, got %+v", venue)
		}
		if venue.CourtType != nil {
			t.Fatalf("expected blank court type to be dropped")
		}
		if venue.CreatedBy != "p1" || repo.created.ID != "venue-1" {
			t.Fatalf("unexpected stored venue %+v", repo.created)
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		svc := NewVenueService(&venueRepoStub{}, nil, nil)
		if _, err := svc.CreateVenue(ctx, Principal{}, VenueInput{}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})
}

func TestVenueService_ListVenues(t *testing.T) {
	repo := &venueRepoStub{}
	svc := NewVenueService(repo, nil, nil)

	venues, err := svc.ListVenues(context.Background(), "  Recife ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if venues == nil {
		t.Fatalf("expected empty non-nil slice")
	}
	if repo.listCity != "Recife" {
		t.Fatalf("expected trimmed city filter, got %q", repo.listCity)
	}
}
