package chat

import (
	"context"
	"strings"
	"time"

	"PChat/service/storage"
	errs "PChat/tools/errs"
	"PChat/tools/security"
)

// Gate admits or rejects a connection based on the credential presented at
// open time. One verification per attempt, no state kept, and no
// re-authentication per message afterwards.
type Gate struct {
	opts     security.Options
	sessions storage.SessionStore
	clock    func() time.Time
}

func NewGate(opts security.Options, sessions storage.SessionStore) *Gate {
	return &Gate{opts: opts, sessions: sessions, clock: time.Now}
}

// Admit verifies the raw token and returns the user id it belongs to.
// The token must parse and verify as a JWT, and a live session with its
// hash must exist, so a revoked (logged-out) token fails here even when
// the signature is still valid.
func (g *Gate) Admit(ctx context.Context, rawToken string) (string, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return "", errs.ErrAuthenticationFailed.WrapMsg("missing credential")
	}

	claims, err := security.Verify(g.opts, token)
	if err != nil {
		return "", errs.ErrAuthenticationFailed.WrapMsg("verify", "err", err)
	}
	sub := claims.Subject()
	if sub == "" {
		return "", errs.ErrAuthenticationFailed.WrapMsg("token without subject")
	}

	sess, err := g.sessions.GetByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		return "", errs.ErrAuthenticationFailed.WrapMsg("session lookup")
	}
	if sess.Expired(g.clock()) {
		return "", errs.ErrAuthenticationFailed.WrapMsg("session expired")
	}
	if sess.UserID != sub {
		return "", errs.ErrAuthenticationFailed.WrapMsg("session/user mismatch")
	}
	return sess.UserID, nil
}
