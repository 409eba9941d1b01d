package application

import (
	"context"
	"errors"
	"sync"
	"time"
)

// accountStoreFake backs the player, invitation and password reset
// repositories with maps.
type accountStoreFake struct {
	mu          sync.Mutex
	players     map[string]PlayerCredentials
	invitations map[string]Invitation
	resets      map[string]PasswordReset

	createErr error
}

func newAccountStoreFake() *accountStoreFake {
	return &accountStoreFake{
		players:     make(map[string]PlayerCredentials),
		invitations: make(map[string]Invitation),
		resets:      make(map[string]PasswordReset),
	}
}

func (f *accountStoreFake) addPlayer(player Player, hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[player.ID] = PlayerCredentials{Player: player, PasswordHash: hash}
}

func (f *accountStoreFake) CreatePlayer(ctx context.Context, player Player, passwordHash string, redemption InvitationRedemption) (Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return Player{}, f.createErr
	}

	var invitation Invitation
	found := false
	for _, inv := range f.invitations {
		if inv.Token == redemption.Token {
			invitation, found = inv, true
			break
		}
	}
	if !found || invitation.Status != InvitationPending || !redemption.RedeemedAt.Before(invitation.ExpiresAt) {
		return Player{}, ErrNotFound
	}
	for _, existing := range f.players {
		if existing.Player.Email == player.Email {
			return Player{}, ErrAlreadyExists
		}
	}

	accepted := redemption.RedeemedAt
	playerID := player.ID
	invitation.Status = InvitationAccepted
	invitation.AcceptedAt = &accepted
	invitation.AcceptedPlayerID = &playerID
	f.invitations[invitation.ID] = invitation
	f.players[player.ID] = PlayerCredentials{Player: player, PasswordHash: passwordHash}
	return player, nil
}

func (f *accountStoreFake) GetPlayer(ctx context.Context, id string) (Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds, ok := f.players[id]
	if !ok {
		return Player{}, ErrNotFound
	}
	return creds.Player, nil
}

func (f *accountStoreFake) GetCredentials(ctx context.Context, id string) (PlayerCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds, ok := f.players[id]
	if !ok {
		return PlayerCredentials{}, ErrNotFound
	}
	return creds, nil
}

func (f *accountStoreFake) GetCredentialsByEmail(ctx context.Context, email string) (PlayerCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, creds := range f.players {
		if creds.Player.Email == email {
			return creds, nil
		}
	}
	return PlayerCredentials{}, ErrNotFound
}

func (f *accountStoreFake) EmailRegistered(ctx context.Context, email string) (bool, error) {
	_, err := f.GetCredentialsByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *accountStoreFake) UpdatePlayer(ctx context.Context, player Player) (Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds, ok := f.players[player.ID]
	if !ok {
		return Player{}, ErrNotFound
	}
	creds.Player = player
	f.players[player.ID] = creds
	return player, nil
}

func (f *accountStoreFake) UpdatePasswordHash(ctx context.Context, playerID, hash string, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	creds, ok := f.players[playerID]
	if !ok {
		return ErrNotFound
	}
	creds.PasswordHash = hash
	creds.Player.UpdatedAt = updatedAt
	f.players[playerID] = creds
	return nil
}

func (f *accountStoreFake) CreateInvitation(ctx context.Context, invitation Invitation) (Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.invitations {
		if existing.Token == invitation.Token {
			return Invitation{}, ErrAlreadyExists
		}
	}
	f.invitations[invitation.ID] = invitation
	return invitation, nil
}

func (f *accountStoreFake) ListInvitationsByInviter(ctx context.Context, inviterID string) ([]Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Invitation
	for _, invitation := range f.invitations {
		if invitation.InviterID == inviterID {
			out = append(out, invitation)
		}
	}
	return out, nil
}

func (f *accountStoreFake) CreatePasswordReset(ctx context.Context, reset PasswordReset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[reset.ID] = reset
	return nil
}

func (f *accountStoreFake) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (PasswordReset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, reset := range f.resets {
		if reset.TokenHash != tokenHash || reset.UsedAt != nil || !now.Before(reset.ExpiresAt) {
			continue
		}
		creds, ok := f.players[reset.PlayerID]
		if !ok {
			return PasswordReset{}, ErrNotFound
		}
		used := now
		reset.UsedAt = &used
		f.resets[id] = reset
		creds.PasswordHash = passwordHash
		f.players[reset.PlayerID] = creds
		return reset, nil
	}
	return PasswordReset{}, ErrNotFound
}

func (f *accountStoreFake) passwordHash(playerID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.players[playerID].PasswordHash
}

func (f *accountStoreFake) invitation(id string) Invitation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invitations[id]
}

// notifierStub records deliveries and optionally fails them.
type notifierStub struct {
	mu          sync.Mutex
	err         error
	invitations []string
	resets      map[string]string
}

func (n *notifierStub) SendInvitation(ctx context.Context, email, token string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.invitations = append(n.invitations, email+"|"+token)
	return nil
}

func (n *notifierStub) SendPasswordReset(ctx context.Context, email, name, token string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	if n.resets == nil {
		n.resets = make(map[string]string)
	}
	n.resets[email] = token
	return nil
}

// tokenManagerStub issues "token:<id>" strings.
type tokenManagerStub struct {
	ttl       time.Duration
	issueErr  error
	lastIssue time.Time
}

func (m *tokenManagerStub) Issue(playerID, email string, issuedAt time.Time) (string, time.Time, error) {
	if m.issueErr != nil {
		return "", time.Time{}, m.issueErr
	}
	m.lastIssue = issuedAt
	return "token:" + playerID, issuedAt.Add(m.ttl), nil
}

func (m *tokenManagerStub) Verify(token string, now time.Time) (string, error) {
	const prefix = "token:"
	if len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return "", ErrUnauthenticated
	}
	if m.ttl > 0 && now.After(m.lastIssue.Add(m.ttl)) {
		return "", ErrUnauthenticated
	}
	return token[len(prefix):], nil
}
