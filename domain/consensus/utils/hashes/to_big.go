package hashes

import (
	"math/big"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// ToBig converts a DomainHash into a big.Int treated as a little endian
// number. Hashes are compared to difficulty targets in this form.
func ToBig(hash *externalapi.DomainHash) *big.Int {
	buf := hash.ByteSlice()
	blen := len(buf)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}
	return new(big.Int).SetBytes(buf)
}
