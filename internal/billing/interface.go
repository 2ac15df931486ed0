package billing

import "context"

// IBillingClient applies fiat credits to user balances. ApplyCredit is
// idempotent on transactionID: re-sending a credit the billing side already
// recorded succeeds and returns the original credit ID.
type IBillingClient interface {
	ApplyCredit(ctx context.Context, userID, amount, transactionID string) (creditID string, err error)
}
