package txns

import (
	"time"

	"github.com/shopspring/decimal"
)

// Txn is a financial transaction owned by exactly one user. Amounts are
// exact decimals; negative means expense, positive income.
type Txn struct {
	ID          int64
	UserID      int64
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
