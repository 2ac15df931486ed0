package observer

import "context"

// IObserver tails the finalized-transfer feed and records deposits addressed
// to accounts this service issued.
type IObserver interface {
	// Run polls the feed until ctx is cancelled.
	Run(ctx context.Context)

	// ObserveOnce processes every finalized block past the durable cursor.
	ObserveOnce(ctx context.Context) error

	// RefreshKnownAccounts reloads the deposit-account filter set from the
	// database.
	RefreshKnownAccounts() error

	// AddKnownAccount makes a freshly issued account visible to the filter
	// without waiting for the next refresh.
	AddKnownAccount(accountID string)
}
