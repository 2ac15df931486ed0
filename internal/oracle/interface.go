package oracle

import "github.com/dwarvesf/payments-backend/internal/model"

// IOracle serves the fiat conversion rate for the chain token. Refresh is
// driven by a cron job, readers always get the last good snapshot.
type IOracle interface {
	GetRate() (*model.PriceSnapshot, error)
	Refresh() error
}
