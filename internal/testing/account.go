package testing

import (
	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/crypto"
	"github.com/LeJamon/goickb/internal/signer"
)

// Account is a deterministic secp256k1 test identity.
type Account struct {
	// Name is a human-readable identifier (used for debugging).
	Name string

	// PrivateKey is the 32-byte secret derived from Name.
	PrivateKey []byte

	// PublicKey is the compressed public key.
	PublicKey []byte

	// LockArgs is the blake160 of PublicKey.
	LockArgs [crypto.LockArgsSize]byte

	// Lock is the default lock script owned by the account.
	Lock cell.Script
}

// NewAccount creates an account whose key is derived from name, so the same
// name always yields the same lock.
func NewAccount(name string) *Account {
	seed := crypto.Blake2b256([]byte("account"), []byte(name))
	pub, err := crypto.PublicKey(crypto.NewSecretKeyWithCopy(seed[:]))
	if err != nil {
		panic("failed to derive key for account " + name + ": " + err.Error())
	}
	args := crypto.CalcLockArgs(pub)
	return &Account{
		Name:       name,
		PrivateKey: seed[:],
		PublicKey:  pub,
		LockArgs:   args,
		Lock:       TestDeployment().Secp256k1.WithArgs(args[:]),
	}
}

// Signer returns a signer for the account's lock.
func (a *Account) Signer() *signer.Secp256k1 {
	s, err := signer.New(crypto.NewSecretKeyWithCopy(a.PrivateKey), TestDeployment().Secp256k1)
	if err != nil {
		panic("failed to build signer for account " + a.Name + ": " + err.Error())
	}
	return s
}

func (a *Account) String() string {
	return a.Name
}
