package ledger

import "time"

// dates in last_signed use the local calendar day
const dateLayout = "2006-01-02"

// Account is one member's ledger entry. Accounts are created lazily on
// first interaction and never deleted.
type Account struct {
	// Balance is the member's clay balance; never negative.
	Balance int `json:"balance"`
	// LastSigned is the calendar date ("2006-01-02") of the last
	// credited check-in, or "".
	LastSigned string `json:"last_signed"`
	// TempRoles maps a grant key to its UTC expiry instant.
	TempRoles map[string]time.Time `json:"temp_roles,omitempty"`
}

// Document is the on-disk ledger shape: user id → account.
type Document map[string]*Account

// account returns the entry for userID, creating it in place when absent.
// A null entry in the data file parses as a nil pointer and counts as
// absent.
func (d Document) account(userID string) *Account {
	acc, ok := d[userID]
	if !ok || acc == nil {
		acc = &Account{}
		d[userID] = acc
	}
	return acc
}
