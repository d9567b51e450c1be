package interfaces

import (
	"github.com/holiman/uint256"
)

// Escrow is the balance/stake collaborator the challenge protocol consumes.
// Provided by the surrounding ledger/tokens module; this core only ever locks,
// releases, and slashes bonds through handles.
type Escrow interface {
	// Lock escrows amount from account and returns an opaque handle.
	Lock(account string, amount *uint256.Int) (string, error)

	// Release returns the full escrowed amount to the given account.
	Release(handle string, to string) error

	// Slash burns burnBps basis points of the escrowed amount to the deterrent
	// fund and pays the remainder to beneficiary.
	Slash(handle string, burnBps uint32, beneficiary string) error
}
