package treasury

import (
	"crypto/ed25519"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// DepositKey is a freshly derived deposit keypair. Address, AccountID and
// PublicKey are all derivations of the same ed25519 public key; the mnemonic
// is the only secret and must be encrypted before it touches storage.
type DepositKey struct {
	Address   string
	AccountID string
	PublicKey string
	Mnemonic  string
}

type ITreasury interface {
	// Generate creates a new 24-word mnemonic and derives its deposit key.
	Generate() (*DepositKey, error)

	// FromMnemonic re-derives the deposit key of an existing mnemonic. The
	// derivation is deterministic: the same mnemonic always yields the same
	// address.
	FromMnemonic(mnemonic string) (*DepositKey, error)
}

type treasury struct {
	ss58Prefix uint16
}

func New(ss58Prefix uint16) ITreasury {
	return &treasury{ss58Prefix: ss58Prefix}
}

func (t *treasury) Generate() (*DepositKey, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate entropy")
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate mnemonic")
	}

	return t.FromMnemonic(mnemonic)
}

func (t *treasury) FromMnemonic(mnemonic string) (*DepositKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, "")
	privateKey := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
	publicKey := privateKey.Public().(ed25519.PublicKey)

	address, err := EncodeSS58(t.ss58Prefix, publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode address")
	}

	publicHex := hex.EncodeToString(publicKey)
	return &DepositKey{
		Address:   address,
		AccountID: publicHex,
		PublicKey: publicHex,
		Mnemonic:  mnemonic,
	}, nil
}
