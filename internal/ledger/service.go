// Package ledger maintains the per-member clay economy: daily check-ins,
// balance queries, paid temporary role grants and their expiry.
//
// Every operation is a full load→mutate→save cycle against the persisted
// document, so the latest on-disk state is always the base of a mutation.
// The event loop serializes callers; see the bot dispatcher.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/atelier/internal/common"
	"github.com/dmitrijs2005/atelier/internal/logging"
	"github.com/dmitrijs2005/atelier/internal/store"
)

// RoleGranter performs the external role side effects of the economy.
// Grant must fail (and the purchase is rolled back) when the platform
// refuses; Revoke failures are logged by the caller and not retried.
type RoleGranter interface {
	Grant(ctx context.Context, userID, grantKey string) error
	Revoke(ctx context.Context, userID, grantKey string) error
}

// ExpiredGrant identifies one grant removed by a sweep.
type ExpiredGrant struct {
	UserID   string
	GrantKey string
}

type Service struct {
	store  *store.Store
	file   string
	reward int
	roles  RoleGranter
	logger logging.Logger

	// now is a test seam; check-in days use its local calendar date.
	now func() time.Time
}

func NewService(st *store.Store, file string, reward int, roles RoleGranter, logger logging.Logger) *Service {
	return &Service{
		store:  st,
		file:   file,
		reward: reward,
		roles:  roles,
		logger: logger.With("module", "ledger"),
		now:    time.Now,
	}
}

func (s *Service) load(ctx context.Context) (Document, error) {
	doc, err := store.Load[Document](ctx, s.store, s.file)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// CheckIn credits the daily reward once per calendar day. It reports
// whether anything was credited and the resulting balance.
func (s *Service) CheckIn(ctx context.Context, userID string) (bool, int, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return false, 0, err
	}

	acc := doc.account(userID)
	today := s.now().Format(dateLayout)

	if acc.LastSigned == today {
		return false, acc.Balance, nil
	}

	acc.Balance += s.reward
	acc.LastSigned = today

	if err := s.store.Save(ctx, s.file, doc); err != nil {
		return false, 0, fmt.Errorf("save ledger: %w", err)
	}

	s.logger.Info(ctx, "check-in credited", "user", userID, "balance", acc.Balance)
	return true, acc.Balance, nil
}

// Balance returns the member's balance, 0 for unknown members.
func (s *Service) Balance(ctx context.Context, userID string) (int, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	acc, ok := doc[userID]
	if !ok {
		return 0, nil
	}
	return acc.Balance, nil
}

// Purchase debits cost, grants the external role and records the temporary
// grant, all-or-nothing from the member's perspective: if the role grant
// fails the ledger is left untouched. Returns the balance after the
// operation (unchanged on failure).
//
// Fails with common.ErrInsufficientFunds when the balance does not cover
// the cost.
func (s *Service) Purchase(ctx context.Context, userID string, cost int, grantKey string, duration time.Duration) (int, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}

	acc := doc.account(userID)
	if acc.Balance < cost {
		return acc.Balance, fmt.Errorf("%w: have %d, need %d", common.ErrInsufficientFunds, acc.Balance, cost)
	}

	// The side effect goes first; the debit is only persisted once the
	// grant succeeded, which is what makes the rollback trivial.
	if err := s.roles.Grant(ctx, userID, grantKey); err != nil {
		return acc.Balance, fmt.Errorf("grant %s: %w", grantKey, err)
	}

	acc.Balance -= cost
	if acc.TempRoles == nil {
		acc.TempRoles = map[string]time.Time{}
	}
	acc.TempRoles[grantKey] = s.now().UTC().Add(duration)

	if err := s.store.Save(ctx, s.file, doc); err != nil {
		return 0, fmt.Errorf("save ledger: %w", err)
	}

	s.logger.Info(ctx, "purchase complete", "user", userID, "grant", grantKey, "balance", acc.Balance)
	return acc.Balance, nil
}

// SweepExpired removes every grant whose expiry is at or before now and
// attempts the external revoke for each. A grant is removed even when its
// revoke call fails: the ledger must not accumulate stale entries, at the
// price that a platform outage during the sweep leaves the member holding
// the role with no further retry. Grants expiring after now are untouched.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) ([]ExpiredGrant, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var expired []ExpiredGrant

	for userID, acc := range doc {
		for key, expiry := range acc.TempRoles {
			if expiry.After(now) {
				continue
			}
			if err := s.roles.Revoke(ctx, userID, key); err != nil {
				s.logger.Warn(ctx, "revoke failed, grant removed anyway",
					"user", userID, "grant", key, "error", err)
			}
			delete(acc.TempRoles, key)
			expired = append(expired, ExpiredGrant{UserID: userID, GrantKey: key})
		}
		if len(acc.TempRoles) == 0 {
			acc.TempRoles = nil
		}
	}

	if err := s.store.Save(ctx, s.file, doc); err != nil {
		return nil, fmt.Errorf("save ledger: %w", err)
	}

	return expired, nil
}
