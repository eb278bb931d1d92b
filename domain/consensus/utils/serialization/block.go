package serialization

import (
	"io"

	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
)

// SerializeHeader writes the consensus serialization of header to w.
func SerializeHeader(w io.Writer, header *externalapi.DomainBlockHeader) error {
	return WriteElements(w, header.Version, header.PreviousBlockHash, header.HashMerkleRoot,
		header.Time, header.Bits, header.Nonce)
}

// TransactionEncoding selects which parts of a transaction are serialized.
type TransactionEncoding uint8

const (
	// TransactionEncodingFull serializes the whole transaction.
	TransactionEncodingFull TransactionEncoding = 0

	// TransactionEncodingExcludeSignatureScript replaces every signature
	// script with an empty one.
	TransactionEncodingExcludeSignatureScript TransactionEncoding = 1 << iota
)

// SerializeTransaction writes the consensus serialization of tx to w.
func SerializeTransaction(w io.Writer, tx *externalapi.DomainTransaction, encoding TransactionEncoding) error {
	err := WriteElements(w, tx.Version, tx.Time, uint64(len(tx.Inputs)))
	if err != nil {
		return err
	}
	for _, input := range tx.Inputs {
		signatureScript := input.SignatureScript
		if encoding&TransactionEncodingExcludeSignatureScript != 0 {
			signatureScript = []byte{}
		}
		err = WriteElements(w, input.PreviousOutpoint.TransactionID, input.PreviousOutpoint.Index,
			signatureScript, input.Sequence)
		if err != nil {
			return err
		}
	}

	err = WriteElement(w, uint64(len(tx.Outputs)))
	if err != nil {
		return err
	}
	for _, output := range tx.Outputs {
		err = WriteElements(w, output.Value, output.ScriptPublicKey)
		if err != nil {
			return err
		}
	}
	return WriteElement(w, tx.LockTime)
}

// SerializeBlock writes the consensus serialization of block to w.
func SerializeBlock(w io.Writer, block *externalapi.DomainBlock) error {
	err := SerializeHeader(w, block.Header)
	if err != nil {
		return err
	}
	err = WriteElement(w, uint64(len(block.Transactions)))
	if err != nil {
		return err
	}
	for _, tx := range block.Transactions {
		err = SerializeTransaction(w, tx, TransactionEncodingFull)
		if err != nil {
			return err
		}
	}
	return WriteElement(w, block.Signature)
}

type countingWriter struct {
	count uint64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.count += uint64(len(p))
	return len(p), nil
}

// BlockSize returns the size of the consensus serialization of block.
func BlockSize(block *externalapi.DomainBlock) uint64 {
	writer := &countingWriter{}
	// countingWriter never fails and every element type is encodable.
	_ = SerializeBlock(writer, block)
	return writer.count
}
