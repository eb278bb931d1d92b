package consensushashing

import (
	"github.com/pkg/errors"
	"github.com/stakecore/stakecore/domain/consensus/model/externalapi"
	"github.com/stakecore/stakecore/domain/consensus/utils/hashes"
	"github.com/stakecore/stakecore/domain/consensus/utils/serialization"
)

// TransactionID generates the ID of the given transaction.
func TransactionID(tx *externalapi.DomainTransaction) *externalapi.DomainTransactionID {
	writer := hashes.NewTransactionIDWriter()
	err := serialization.SerializeTransaction(writer, tx, serialization.TransactionEncodingFull)
	if err != nil {
		panic(errors.Wrap(err, "TransactionID() failed. this should never fail for structurally-valid transactions"))
	}
	return (*externalapi.DomainTransactionID)(writer.Finalize())
}

// TransactionIDs returns the IDs of the given transactions.
func TransactionIDs(txs []*externalapi.DomainTransaction) []*externalapi.DomainTransactionID {
	txIDs := make([]*externalapi.DomainTransactionID, len(txs))
	for i, tx := range txs {
		txIDs[i] = TransactionID(tx)
	}
	return txIDs
}

// CalculateSignatureHash returns the hash an input's signature commits to:
// the transaction without signature scripts, the index of the signed input,
// and the script and value of the output it spends.
func CalculateSignatureHash(tx *externalapi.DomainTransaction, inputIndex int,
	spentOutput *externalapi.DomainTransactionOutput) (*externalapi.DomainHash, error) {

	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return nil, errors.Errorf("input index %d is out of range for a transaction with %d inputs",
			inputIndex, len(tx.Inputs))
	}

	writer := hashes.NewTransactionSigningHashWriter()
	err := serialization.SerializeTransaction(writer, tx, serialization.TransactionEncodingExcludeSignatureScript)
	if err != nil {
		return nil, err
	}
	err = serialization.WriteElements(writer, uint32(inputIndex), spentOutput.ScriptPublicKey, spentOutput.Value)
	if err != nil {
		return nil, err
	}
	return writer.Finalize(), nil
}
