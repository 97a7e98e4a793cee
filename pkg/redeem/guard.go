// Package redeem authorizes one-time ticket redemptions.
//
// A Guard checks a signed Request against the ticket ledger and the replay
// store, verifies the signature over the request's domain-separated digest,
// and only then commits: the ticket is marked used, the digest is recorded
// and the owner's nonce advances. Every rejection is an *Error with a stable
// Reason and leaves all state untouched.
//
// Checks run in a fixed order, which decides the reason reported when
// several checks would fail:
//
//	caller allow-list (if configured)
//	deadline          -> expired
//	ticket owner      -> ticket_not_found / not_owner
//	digest replay     -> replayed
//	owner nonce       -> invalid_nonce (nonce mode only)
//	signature         -> invalid_r / invalid_s / invalid_public_key / invalid_signature
//	ledger mark       -> already_used
package redeem

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/mahdiidarabi/ticketsig/pkg/ecverify"
	"github.com/mahdiidarabi/ticketsig/pkg/eip712"
)

// Ledger is the external ticket registry.
type Ledger interface {
	// OwnerOf returns the current owner, or ErrTicketNotFound.
	OwnerOf(ctx context.Context, ticketID *big.Int) (eip712.Address, error)

	// Used reports the ticket's used flag without changing it.
	Used(ctx context.Context, ticketID *big.Int) (bool, error)

	// MarkUsed flips the ticket's used flag. A second call for the same
	// ticket must fail with ErrAlreadyUsed.
	MarkUsed(ctx context.Context, ticketID *big.Int) error
}

// Commit is the state change recorded for an accepted request.
type Commit struct {
	Digest eip712.Hash
	Owner  eip712.Address

	// NextNonce is the owner's new nonce, or nil to leave it unchanged.
	NextNonce *big.Int
}

// Store holds the replay record and the per-owner nonce table. Commit must
// apply the digest and the nonce together or not at all.
type Store interface {
	HasDigest(ctx context.Context, digest eip712.Hash) (bool, error)
	Nonce(ctx context.Context, owner eip712.Address) (*big.Int, error)
	Commit(ctx context.Context, c Commit) error
}

// Observer is notified after every successful redemption.
type Observer interface {
	Verified(r Receipt)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Receipt)

// Verified implements Observer.
func (f ObserverFunc) Verified(r Receipt) { f(r) }

// Guard runs the redemption state machine. It is safe for concurrent use.
type Guard struct {
	builder  *eip712.Builder
	ledger   Ledger
	store    Store
	now      func() time.Time
	observer Observer
	nonces   bool
	callers  map[eip712.Address]struct{}
	stripes  int
	locks    *keyLocks
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the time source used for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithObserver registers an observer for successful redemptions.
func WithObserver(o Observer) Option {
	return func(g *Guard) { g.observer = o }
}

// WithoutNonces disables the per-owner nonce check, leaving the digest
// replay record as the only anti-replay mechanism.
func WithoutNonces() Option {
	return func(g *Guard) { g.nonces = false }
}

// WithAuthorizedCallers restricts redemption to the listed callers.
func WithAuthorizedCallers(callers ...eip712.Address) Option {
	return func(g *Guard) {
		for _, c := range callers {
			g.callers[c] = struct{}{}
		}
	}
}

// WithLockStripes sets the number of key lock stripes.
func WithLockStripes(n int) Option {
	return func(g *Guard) { g.stripes = n }
}

// New returns a Guard. Nonce checking is enabled unless WithoutNonces is
// given.
func New(b *eip712.Builder, l Ledger, s Store, opts ...Option) (*Guard, error) {
	if b == nil || l == nil || s == nil {
		return nil, errors.New("builder, ledger and store are required")
	}
	g := &Guard{
		builder: b,
		ledger:  l,
		store:   s,
		now:     time.Now,
		nonces:  true,
		callers: make(map[eip712.Address]struct{}),
		stripes: defaultLockStripes,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.locks = newKeyLocks(g.stripes)
	return g, nil
}

// Builder returns the digest builder the guard verifies against.
func (g *Guard) Builder() *eip712.Builder { return g.builder }

// NoncesEnabled reports whether the nonce check is active.
func (g *Guard) NoncesEnabled() bool { return g.nonces }

// Digest returns the digest for req under the guard's domain.
func (g *Guard) Digest(req *Request) (eip712.Hash, error) {
	return req.Message().Digest(g.builder)
}

// Redeem runs every check and, when all pass, commits the redemption.
func (g *Guard) Redeem(ctx context.Context, req *Request) (*Receipt, error) {
	return g.process(ctx, req, true)
}

// Check runs every check without committing anything. A nil error means a
// Redeem of the same request would currently succeed.
func (g *Guard) Check(ctx context.Context, req *Request) (*Receipt, error) {
	return g.process(ctx, req, false)
}

func (g *Guard) process(ctx context.Context, req *Request, commit bool) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, reject(ReasonInvalidRequest, err)
	}

	if len(g.callers) > 0 {
		if _, ok := g.callers[req.Caller]; !ok {
			return nil, g.rejected(req, reject(ReasonCallerUnauthorized, nil))
		}
	}

	now := g.now()
	if big.NewInt(now.Unix()).Cmp(req.Deadline) > 0 {
		return nil, g.rejected(req, reject(ReasonExpired,
			fmt.Errorf("deadline %s passed at %d", req.Deadline, now.Unix())))
	}

	unlock := g.locks.lock(ticketKey(req.TicketID), ownerKey(req.Owner))
	defer unlock()

	owner, err := g.ledger.OwnerOf(ctx, req.TicketID)
	switch {
	case errors.Is(err, ErrTicketNotFound):
		return nil, g.rejected(req, reject(ReasonTicketNotFound, nil))
	case err != nil:
		return nil, fmt.Errorf("failed to look up ticket owner: %w", err)
	case owner != req.Owner:
		return nil, g.rejected(req, reject(ReasonNotOwner, nil))
	}

	digest, err := g.Digest(req)
	if err != nil {
		return nil, g.rejected(req, reject(ReasonInvalidRequest, err))
	}

	seen, err := g.store.HasDigest(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to query replay record: %w", err)
	}
	if seen {
		return nil, g.rejected(req, reject(ReasonReplayed, nil))
	}

	var nextNonce *big.Int
	if g.nonces {
		stored, err := g.store.Nonce(ctx, req.Owner)
		if err != nil {
			return nil, fmt.Errorf("failed to load nonce: %w", err)
		}
		if req.Nonce == nil || stored.Cmp(req.Nonce) != 0 {
			return nil, g.rejected(req, reject(ReasonInvalidNonce,
				fmt.Errorf("expected nonce %s", stored)))
		}
		nextNonce = new(big.Int).Add(stored, big.NewInt(1))
	}

	if rerr := g.verifySignature(req, digest); rerr != nil {
		return nil, g.rejected(req, rerr)
	}

	receipt := &Receipt{
		TicketID: new(big.Int).Set(req.TicketID),
		Owner:    req.Owner,
		Nonce:    nonceOrZero(req.Nonce),
		Digest:   digest,
		State:    StateVerified,
	}
	if !commit {
		used, err := g.ledger.Used(ctx, req.TicketID)
		if err != nil {
			return nil, fmt.Errorf("failed to read ticket state: %w", err)
		}
		if used {
			return nil, g.rejected(req, reject(ReasonAlreadyUsed, nil))
		}
		return receipt, nil
	}

	if err := g.ledger.MarkUsed(ctx, req.TicketID); err != nil {
		if errors.Is(err, ErrAlreadyUsed) {
			return nil, g.rejected(req, reject(ReasonAlreadyUsed, nil))
		}
		return nil, fmt.Errorf("failed to mark ticket used: %w", err)
	}

	err = g.store.Commit(ctx, Commit{Digest: digest, Owner: req.Owner, NextNonce: nextNonce})
	if err != nil {
		// The ticket stays spent on the ledger; only the replay record
		// entry is missing.
		log.Errorf("Ticket %s marked used but replay record commit failed: %v", req.TicketID, err)
		return nil, fmt.Errorf("failed to commit replay record: %w", err)
	}

	receipt.State = StateUsed
	receipt.RedeemedAt = now
	log.Infof("Redeemed ticket %s for %s (digest %s)", req.TicketID, req.Owner, digest)
	if g.observer != nil {
		g.observer.Verified(*receipt)
	}
	return receipt, nil
}

// verifySignature checks an explicit key against the claimed owner, or
// recovers the key from the signature when none is given.
func (g *Guard) verifySignature(req *Request, digest eip712.Hash) *Error {
	z := new(big.Int).SetBytes(digest[:])
	sig := req.Signature
	h := g.builder.Hasher()

	if req.PublicKey != nil {
		q := *req.PublicKey
		ok, err := ecverify.Verify(z, sig.R, sig.S, q)
		if err != nil {
			return fromVerifyError(err)
		}
		id, err := eip712.AddressFromPublicKey(h, q)
		if err != nil {
			return reject(ReasonInvalidPublicKey, err)
		}
		if id != req.Owner {
			return reject(ReasonInvalidPublicKey, fmt.Errorf("key belongs to %s", id))
		}
		if !ok {
			return reject(ReasonInvalidSignature, nil)
		}
		return nil
	}

	q, err := ecverify.RecoverPublicKey(z, sig)
	if errors.Is(err, ecverify.ErrNoRecoveryID) {
		return reject(ReasonInvalidPublicKey, err)
	}
	if err != nil {
		return fromVerifyError(err)
	}
	id, err := eip712.AddressFromPublicKey(h, q)
	if err != nil || id != req.Owner {
		return reject(ReasonInvalidSignature, nil)
	}
	ok, err := ecverify.Verify(z, sig.R, sig.S, q)
	if err != nil {
		return fromVerifyError(err)
	}
	if !ok {
		return reject(ReasonInvalidSignature, nil)
	}
	return nil
}

func (g *Guard) rejected(req *Request, e *Error) *Error {
	log.Debugf("Rejected ticket %s for %s: %s", req.TicketID, req.Owner, e.Reason)
	return e
}

func nonceOrZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(n)
}

func ticketKey(id *big.Int) []byte {
	return append([]byte("ticket:"), id.Bytes()...)
}

func ownerKey(a eip712.Address) []byte {
	return append([]byte("owner:"), a[:]...)
}
