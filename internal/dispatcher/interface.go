package dispatcher

import "context"

// IDispatcher drains the billing outbox, delivering each credit to billing
// at least once and scheduling retries for failures.
type IDispatcher interface {
	Run(ctx context.Context)
	DispatchOnce(ctx context.Context) error
}
