package serialization

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"google.golang.org/protobuf/encoding/protowire"
)

func testUnspentOutputs(seed byte) *externalapi.UnspentOutputs {
	return &externalapi.UnspentOutputs{
		TransactionID: *externalapi.NewDomainTransactionIDFromByteArray(&[externalapi.DomainHashSize]byte{seed, 2, 3}),
		Height:        1000 + uint64(seed),
		IsCoinstake:   true,
		Time:          1600000000,
		Outputs: []*externalapi.DomainTransactionOutput{
			{},
			nil,
			{Value: 12345, ScriptPublicKey: []byte{0x20, 1, 2, 3, 0xac}},
		},
	}
}

func TestUnspentOutputsSerialization(t *testing.T) {
	unspentOutputs := testUnspentOutputs(1)
	serialized := SerializeUnspentOutputs(unspentOutputs)
	deserialized, err := DeserializeUnspentOutputs(serialized)
	if err != nil {
		t.Fatalf("DeserializeUnspentOutputs: %s", err)
	}
	if !deserialized.Equal(unspentOutputs) {
		t.Fatalf("expected %s, got %s", spew.Sdump(unspentOutputs), spew.Sdump(deserialized))
	}
	if deserialized.Outputs[0] == nil || deserialized.Outputs[1] != nil {
		t.Fatalf("an empty output must stay unspent and a spent slot must stay spent")
	}
	if !bytes.Equal(SerializeUnspentOutputs(deserialized), serialized) {
		t.Fatalf("serialization is not deterministic")
	}
}

func TestDeserializeSkipsUnknownFields(t *testing.T) {
	unspentOutputs := testUnspentOutputs(1)
	serialized := SerializeUnspentOutputs(unspentOutputs)
	serialized = protowire.AppendTag(serialized, 99, protowire.BytesType)
	serialized = protowire.AppendBytes(serialized, []byte("future"))

	deserialized, err := DeserializeUnspentOutputs(serialized)
	if err != nil {
		t.Fatalf("DeserializeUnspentOutputs: %s", err)
	}
	if !deserialized.Equal(unspentOutputs) {
		t.Fatalf("expected %s, got %s", unspentOutputs, deserialized)
	}
}

func TestDeserializeMalformed(t *testing.T) {
	serialized := SerializeUnspentOutputs(testUnspentOutputs(1))
	_, err := DeserializeUnspentOutputs(serialized[:len(serialized)-1])
	if err == nil {
		t.Fatalf("DeserializeUnspentOutputs accepted a truncated record")
	}
	_, err = DeserializeUnspentOutputs(appendVarintField(nil, unspentOutputsHeightField, 5))
	if err == nil {
		t.Fatalf("DeserializeUnspentOutputs accepted a record without a transaction ID")
	}
	_, err = DeserializeUnspentOutputs(appendBytesField(nil, unspentOutputsHeightField, []byte{1}))
	if err == nil {
		t.Fatalf("DeserializeUnspentOutputs accepted a height with the wrong wire type")
	}
}

func TestRewindDataSerialization(t *testing.T) {
	rewindData := &externalapi.RewindData{
		Height:            1001,
		PreviousBlockHash: *externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{7}),
		TransactionsToRemove: []externalapi.DomainTransactionID{
			*externalapi.NewDomainTransactionIDFromByteArray(&[externalapi.DomainHashSize]byte{8}),
			*externalapi.NewDomainTransactionIDFromByteArray(&[externalapi.DomainHashSize]byte{9}),
		},
		OutputsToRestore: []*externalapi.UnspentOutputs{testUnspentOutputs(1), testUnspentOutputs(2)},
	}
	deserialized, err := DeserializeRewindData(SerializeRewindData(rewindData))
	if err != nil {
		t.Fatalf("DeserializeRewindData: %s", err)
	}
	if !deserialized.Equal(rewindData) {
		t.Fatalf("expected %s, got %s", spew.Sdump(rewindData), spew.Sdump(deserialized))
	}
}

func TestTipSerialization(t *testing.T) {
	hash := externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{0xaa, 0xbb})
	deserializedHash, height, err := DeserializeTip(SerializeTip(hash, 77))
	if err != nil {
		t.Fatalf("DeserializeTip: %s", err)
	}
	if !deserializedHash.Equal(hash) || height != 77 {
		t.Fatalf("expected %s at %d, got %s at %d", hash, 77, deserializedHash, height)
	}
}
