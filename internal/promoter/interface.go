package promoter

// IPromoter moves FINALIZED deposits to CREDITED and enqueues their fiat
// credits in the billing outbox.
type IPromoter interface {
	PromoteOnce() error
}
