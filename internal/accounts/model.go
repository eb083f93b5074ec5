package accounts

import "time"

// Account links two users in a shared ledger relationship: the owner who
// created it and the other party it is shared with.
type Account struct {
	ID           int64
	UserID       int64
	OtherPartyID int64
	Name         string
	CreatedAt    time.Time
}

// View is an account joined with both parties' display fields, as rendered
// on the index and show pages.
type View struct {
	Account
	OwnerName       string
	OwnerEmail      string
	OtherPartyName  string
	OtherPartyEmail string
}
