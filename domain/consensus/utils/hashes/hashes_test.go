package hashes

import (
	"testing"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

func TestHashWritersAreDomainSeparated(t *testing.T) {
	data := []byte("stake")
	writers := map[string]HashWriter{
		"block":         NewBlockHashWriter(),
		"transactionID": NewTransactionIDWriter(),
		"signing":       NewTransactionSigningHashWriter(),
		"merkle":        NewMerkleBranchHashWriter(),
		"kernel":        NewStakeKernelHashWriter(),
		"modifier":      NewStakeModifierHashWriter(),
	}

	seen := make(map[externalapi.DomainHash]string)
	for name, writer := range writers {
		writer.InfallibleWrite(data)
		hash := *writer.Finalize()
		if other, ok := seen[hash]; ok {
			t.Fatalf("writers %s and %s produced the same hash", name, other)
		}
		seen[hash] = name
	}

	first := NewBlockHashWriter()
	first.InfallibleWrite(data)
	second := NewBlockHashWriter()
	second.InfallibleWrite(data[:2])
	second.InfallibleWrite(data[2:])
	if !first.Finalize().Equal(second.Finalize()) {
		t.Fatalf("incremental writes changed the hash")
	}
}

func TestToBig(t *testing.T) {
	hash := externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{0x01, 0x02})
	if ToBig(hash).Int64() != 0x0201 {
		t.Fatalf("ToBig: expected 0x0201, got %x", ToBig(hash))
	}
	if hash.ByteSlice()[0] != 0x01 {
		t.Fatalf("ToBig modified the hash")
	}
}
