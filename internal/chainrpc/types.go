package chainrpc

import (
	"math/big"
	"regexp"

	"github.com/pkg/errors"
)

var accountHexRegex = regexp.MustCompile("^[0-9a-f]{64}$")

// TransferEvent is one balance transfer inside a finalized block. Accounts
// are 32-byte hex encoded; the amount is an integer in smallest on-chain
// units.
type TransferEvent struct {
	BlockNumber uint64 `json:"block_number"`
	EventIndex  int    `json:"event_index"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
}

// Validate rejects malformed feed payloads before they can reach storage.
func (e *TransferEvent) Validate() error {
	if e.EventIndex < 0 {
		return errors.Errorf("negative event index: %d", e.EventIndex)
	}
	if !accountHexRegex.MatchString(e.From) {
		return errors.Errorf("malformed from account: %q", e.From)
	}
	if !accountHexRegex.MatchString(e.To) {
		return errors.Errorf("malformed to account: %q", e.To)
	}

	amount, ok := new(big.Int).SetString(e.Amount, 10)
	if !ok {
		return errors.Errorf("malformed amount: %q", e.Amount)
	}
	if amount.Sign() < 0 {
		return errors.Errorf("negative amount: %q", e.Amount)
	}

	return nil
}

type finalizedHeadResponse struct {
	Height uint64 `json:"height"`
}
