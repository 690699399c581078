// Package broker issues short-lived realtime client secrets scoped to a
// single practice session, reusing a still-valid credential when it can
// and minting a fresh one when it must.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"speech-dojo/pkg/store"
	"speech-dojo/pkg/telemetry"
	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrForbidden      = errors.New("session belongs to another user")
	ErrIssuanceFailed = errors.New("credential issuance failed")
)

const (
	// A token expiring within this window is treated as already stale so
	// a client never receives a secret that dies mid-use.
	reuseBuffer = 30 * time.Second

	credentialTTL = 10 * time.Minute
)

type IssuedCredential struct {
	SessionID uuid.UUID `json:"session_id"`
	Token     string    `json:"client_secret"`
	ExpiresAt time.Time `json:"expires_at"`
	Reused    bool      `json:"-"`
}

type Broker struct {
	sessions    store.SessionStore
	credentials store.CredentialStore
	now         func() time.Time
}

func New(sessions store.SessionStore, credentials store.CredentialStore) *Broker {
	return &Broker{
		sessions:    sessions,
		credentials: credentials,
		now:         time.Now,
	}
}

// IssueOrRefresh returns a realtime credential for the session. An
// unexpired credential outside the reuse buffer is returned verbatim;
// otherwise a new one is minted with a fresh expiry. desiredStatus, when
// non-empty, is applied to the session best-effort: a failed status
// update is logged and the credential flow continues.
func (b *Broker) IssueOrRefresh(ctx context.Context, sessionID, userID uuid.UUID, forceRefresh bool, desiredStatus string) (*IssuedCredential, error) {
	session, err := b.sessions.Get(ctx, sessionID)
	if err != nil {
		telemetry.LogFailure("client_secret_session_missing", sessionID, err.Error())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	if session.UserID != userID {
		telemetry.LogFailure("client_secret_forbidden", sessionID, "user mismatch")
		return nil, ErrForbidden
	}

	// Status bookkeeping must never block issuance. A reconnecting
	// client may legitimately mark the session "recovering" here.
	if desiredStatus != "" {
		if err := b.sessions.UpdateStatus(ctx, sessionID, desiredStatus); err != nil {
			telemetry.LogFailure("client_secret_status_update_failed", sessionID, err.Error())
		}
	}

	existing, err := b.credentials.LatestForSession(ctx, sessionID)
	if err != nil {
		telemetry.LogFailure("client_secret_lookup_failed", sessionID, err.Error())
		return nil, ErrIssuanceFailed
	}

	now := b.now()

	if existing != nil && !forceRefresh && existing.ExpiresAt.After(now.Add(reuseBuffer)) {
		telemetry.LogRecovery("client_secret_issued", sessionID, "reused_valid_token")
		return &IssuedCredential{
			SessionID: sessionID,
			Token:     existing.Token,
			ExpiresAt: existing.ExpiresAt,
			Reused:    true,
		}, nil
	}

	minted, err := b.mint(ctx, sessionID, existing != nil)
	if err != nil {
		return nil, err
	}

	telemetry.LogRecovery("client_secret_issued", sessionID, "new_token")
	return minted, nil
}

func (b *Broker) mint(ctx context.Context, sessionID uuid.UUID, refresh bool) (*IssuedCredential, error) {
	token := fmt.Sprintf("client_secret_%s", uuid.New())
	expiresAt := b.now().Add(credentialTTL)

	credential, err := b.credentials.Insert(ctx, sessionID, token, expiresAt)
	if err != nil {
		event := "client_secret_issue_failed"
		if refresh {
			event = "client_secret_refresh_failed"
		}
		telemetry.LogFailure(event, sessionID, err.Error())
		return nil, ErrIssuanceFailed
	}

	return &IssuedCredential{
		SessionID: sessionID,
		Token:     credential.Token,
		ExpiresAt: credential.ExpiresAt,
	}, nil
}
