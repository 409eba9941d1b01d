package application

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// matchStoreFake backs MatchRepository, EnrollmentRepository and VenueLookup
// with maps so service tests can exercise full flows.
type matchStoreFake struct {
	mu          sync.Mutex
	venues      map[string]Venue
	matches     map[string]Match
	enrollments map[string]Enrollment

	updateErr error
	saveErr   error
}

func newMatchStoreFake() *matchStoreFake {
	return &matchStoreFake{
		venues:      make(map[string]Venue),
		matches:     make(map[string]Match),
		enrollments: make(map[string]Enrollment),
	}
}

func (f *matchStoreFake) addVenue(venue Venue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.venues[venue.ID] = venue
}

func (f *matchStoreFake) GetVenue(ctx context.Context, id string) (Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	venue, ok := f.venues[id]
	if !ok {
		return Venue{}, ErrNotFound
	}
	return venue, nil
}

func (f *matchStoreFake) ListVenues(ctx context.Context, city string) ([]Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Venue
	for _, venue := range f.venues {
		if city == "" || strings.EqualFold(venue.City, city) {
			out = append(out, venue)
		}
	}
	return out, nil
}

func (f *matchStoreFake) CreateMatch(ctx context.Context, match Match) (Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.matches[match.ID]; exists {
		return Match{}, ErrAlreadyExists
	}
	match.Version = 1
	f.matches[match.ID] = match
	return match, nil
}

func (f *matchStoreFake) GetMatch(ctx context.Context, id string) (Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	match, ok := f.matches[id]
	if !ok {
		return Match{}, ErrNotFound
	}
	return match, nil
}

func (f *matchStoreFake) UpdateMatch(ctx context.Context, match Match) (Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return Match{}, f.updateErr
	}
	return f.updateMatchLocked(match)
}

func (f *matchStoreFake) updateMatchLocked(match Match) (Match, error) {
	current, ok := f.matches[match.ID]
	if !ok {
		return Match{}, ErrNotFound
	}
	if current.Version != match.Version {
		return Match{}, ErrConcurrentUpdate
	}
	match.Version++
	f.matches[match.ID] = match
	return match, nil
}

func (f *matchStoreFake) ListMatches(ctx context.Context, filter MatchRepositoryFilter) ([]Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var venueSet map[string]struct{}
	if filter.VenueIDs != nil {
		venueSet = make(map[string]struct{}, len(filter.VenueIDs))
		for _, id := range filter.VenueIDs {
			venueSet[id] = struct{}{}
		}
	}

	var out []Match
	for _, match := range f.matches {
		if venueSet != nil {
			if _, ok := venueSet[match.VenueID]; !ok {
				continue
			}
		}
		if filter.StartsAfter != nil && match.StartsAt.Before(*filter.StartsAfter) {
			continue
		}
		if filter.StartsBefore != nil && !match.StartsAt.Before(*filter.StartsBefore) {
			continue
		}
		if filter.Status != "" && match.Status != filter.Status {
			continue
		}
		out = append(out, match)
	}
	// Reverse id order; the service sorts.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *matchStoreFake) CreateEnrollment(ctx context.Context, enrollment Enrollment) (Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.findActiveLocked(enrollment.MatchID, enrollment.PlayerID); ok {
		return Enrollment{}, ErrAlreadyExists
	}
	f.enrollments[enrollment.ID] = enrollment
	return enrollment, nil
}

func (f *matchStoreFake) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	enrollment, ok := f.enrollments[id]
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	return enrollment, nil
}

func (f *matchStoreFake) FindActiveEnrollment(ctx context.Context, matchID, playerID string) (Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	enrollment, ok := f.findActiveLocked(matchID, playerID)
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	return enrollment, nil
}

func (f *matchStoreFake) findActiveLocked(matchID, playerID string) (Enrollment, bool) {
	for _, enrollment := range f.enrollments {
		if enrollment.MatchID == matchID && enrollment.PlayerID == playerID && enrollment.IsActive() {
			return enrollment, true
		}
	}
	return Enrollment{}, false
}

func (f *matchStoreFake) ListEnrollments(ctx context.Context, matchID string) ([]Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Enrollment
	for _, enrollment := range f.enrollments {
		if enrollment.MatchID == matchID {
			out = append(out, enrollment)
		}
	}
	return out, nil
}

func (f *matchStoreFake) SaveTransition(ctx context.Context, match Match, enrollment Enrollment) (Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return Match{}, f.saveErr
	}
	if _, ok := f.enrollments[enrollment.ID]; !ok {
		return Match{}, ErrNotFound
	}
	updated, err := f.updateMatchLocked(match)
	if err != nil {
		return Match{}, err
	}
	f.enrollments[enrollment.ID] = enrollment
	return updated, nil
}

func (f *matchStoreFake) DeleteTransition(ctx context.Context, match Match, enrollmentID string) (Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.enrollments[enrollmentID]; !ok {
		return Match{}, ErrNotFound
	}
	updated, err := f.updateMatchLocked(match)
	if err != nil {
		return Match{}, err
	}
	delete(f.enrollments, enrollmentID)
	return updated, nil
}

func (f *matchStoreFake) match(id string) Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.matches[id]
}

func (f *matchStoreFake) countByStatus(matchID string, status EnrollmentStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, enrollment := range f.enrollments {
		if enrollment.MatchID == matchID && enrollment.Status == status {
			count++
		}
	}
	return count
}

// sequence returns a generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// plainHasher keeps tests fast by skipping argon2.
func plainHasher(password string) (string, error) {
	return "hashed:" + password, nil
}

func plainVerifier(hash, password string) error {
	if hash != "hashed:"+password {
		return ErrInvalidCredentials
	}
	return nil
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func organizerPrincipal() Principal { return Principal{PlayerID: "organizer", Email: "org@example.com"} }

func playerPrincipal(id string) Principal { return Principal{PlayerID: id, Email: id + "@example.com"} }

// newMatchServiceFixture returns a service over a fresh fake with one venue.
func newMatchServiceFixture() (*MatchService, *matchStoreFake) {
	store := newMatchStoreFake()
	store.addVenue(Venue{ID: "venue-1", Name: "Ginásio Central", City: "Recife", State: "PE"})
	svc := NewMatchService(store, store, store, sequence("id"), fixedClock(testNow), time.UTC)
	return svc, store
}

func validMatchInput(maxPlayers int) MatchInput {
	return MatchInput{
		Title:           "Vôlei de quinta",
		VenueID:         "venue-1",
		StartsAt:        testNow.Add(48 * time.Hour),
		DurationMinutes: 120,
		Kind:            "Quadra",
		Category:        "Misto",
		MaxPlayers:      maxPlayers,
		CostCents:       1500,
	}
}
