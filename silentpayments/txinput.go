package silentpayments

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// BIP0341NUMSPoint is the x-only "nothing up my sleeve" point H of BIP-0341.
// Script path spends with this internal key are not eligible.
var BIP0341NUMSPoint = []byte{
	0x50, 0x92, 0x9b, 0x74, 0xc1, 0xa0, 0x49, 0x54,
	0xb7, 0x8b, 0x4b, 0x60, 0x35, 0xe9, 0x7a, 0x5e,
	0x07, 0x8a, 0x5a, 0x0f, 0x28, 0xec, 0x96, 0xd5,
	0x47, 0xbf, 0xee, 0x9a, 0xce, 0x80, 0x3a, 0xc0,
}

const (
	// annexTag is the first byte of a taproot annex witness item.
	annexTag = 0x50

	// hash160Length is the length of a HASH160 digest.
	hash160Length = 20
)

// PrevOutFetcher returns the output script of the given previous output.
type PrevOutFetcher func(wire.OutPoint) ([]byte, error)

// PublicKeyFromInput extracts the public key an input contributes to the
// shared secret, given the script of the output it spends.  Inputs that are
// not eligible fail with ErrIneligibleInput.
func PublicKeyFromInput(txIn *wire.TxIn, prevOutScript []byte) (
	*btcec.PublicKey, ScriptType, error) {

	scriptType := ClassifyScript(prevOutScript)

	switch scriptType {
	case ScriptTypeP2PKH:
		// The key is the last 33-byte window of the scriptSig that
		// hashes to the committed key hash.  Scanning from the end
		// copes with data prepended by a malleated scriptSig.
		//
		//    scriptSig:    <sig> <33-byte-compressed-key>
		//    scriptPubKey: OP_DUP OP_HASH160 <20> OP_EQUALVERIFY
		//                  OP_CHECKSIG
		keyHash := prevOutScript[3 : 3+hash160Length]
		sigScript := txIn.SignatureScript
		for end := len(sigScript); end >= pubKeyLength; end-- {
			candidate := sigScript[end-pubKeyLength : end]
			if !bytes.Equal(btcutil.Hash160(candidate), keyHash) {
				continue
			}

			return parseInputKey(candidate, scriptType)
		}

		return nil, scriptType, ineligible("p2pkh scriptSig has no "+
			"compressed key matching the key hash")

	case ScriptTypeP2WPKH:
		//    witness:      <sig> <33-byte-compressed-key>
		//    scriptPubKey: 0 <20-byte-key-hash>
		if len(txIn.Witness) != 2 {
			return nil, scriptType, ineligible("p2wpkh witness "+
				"must have two items")
		}

		return parseInputKey(txIn.Witness[1], scriptType)

	case ScriptTypeP2SHP2WPKH:
		//    witness:      <sig> <33-byte-compressed-key>
		//    scriptSig:    <0 <20-byte-key-hash>>
		//    scriptPubKey: OP_HASH160 <20> OP_EQUAL
		redeem := txIn.SignatureScript
		if len(redeem) != 23 || redeem[0] != txscript.OP_DATA_22 ||
			!txscript.IsPayToWitnessPubKeyHash(redeem[1:]) {

			return nil, ScriptTypeUnknown, ineligible("p2sh input "+
				"is not nested p2wpkh")
		}
		if len(txIn.Witness) != 2 {
			return nil, scriptType, ineligible("p2sh-p2wpkh "+
				"witness must have two items")
		}

		return parseInputKey(txIn.Witness[1], scriptType)

	case ScriptTypeP2TR:
		witness := txIn.Witness
		if len(witness) == 0 {
			return nil, scriptType, ineligible("p2tr input has no " +
				"witness")
		}

		// Drop the annex, if present.
		last := witness[len(witness)-1]
		if len(witness) > 1 && len(last) > 0 && last[0] == annexTag {
			witness = witness[:len(witness)-1]
		}

		// A script path spend reveals the internal key in the control
		// block.  Outputs committing to the NUMS point have no key
		// path and are skipped.
		if len(witness) > 1 {
			controlBlock := witness[len(witness)-1]
			if len(controlBlock) >= 1+xOnlyLength && bytes.Equal(
				controlBlock[1:1+xOnlyLength], BIP0341NUMSPoint,
			) {

				return nil, scriptType, ineligible("p2tr script " +
					"path spend with NUMS internal key")
			}
		}

		key, err := schnorr.ParsePubKey(prevOutScript[2:])
		if err != nil {
			return nil, scriptType, ineligible(fmt.Sprintf("p2tr "+
				"output key: %v", err))
		}

		return key, scriptType, nil

	default:
		return nil, scriptType, ineligible("unsupported previous " +
			"output script")
	}
}

// InputsFromTx returns the silent payment view of every input of tx.  Inputs
// that cannot contribute a key are returned with a nil PubKey so that their
// outpoints still take part in the input hash.  A transaction spending a
// segwit output of version 2 or higher fails with ErrIneligibleInput, since
// such transactions are excluded altogether.
func InputsFromTx(tx *wire.MsgTx, fetch PrevOutFetcher) ([]TransactionInput,
	error) {

	inputs := make([]TransactionInput, 0, len(tx.TxIn))
	for idx, txIn := range tx.TxIn {
		prevOutScript, err := fetch(txIn.PreviousOutPoint)
		if err != nil {
			return nil, fmt.Errorf("unable to fetch prevout of "+
				"input %d: %w", idx, err)
		}

		if isFutureWitnessProgram(prevOutScript) {
			return nil, ineligible(fmt.Sprintf("input %d spends an "+
				"unknown segwit version", idx))
		}

		in := TransactionInput{OutPoint: txIn.PreviousOutPoint}
		pubKey, scriptType, err := PublicKeyFromInput(
			txIn, prevOutScript,
		)
		if err != nil {
			log.Tracef("Input %d of %v not eligible: %v", idx,
				tx.TxHash(), err)
		} else {
			in.PubKey = pubKey
			in.ScriptType = scriptType
		}

		inputs = append(inputs, in)
	}

	return inputs, nil
}

// isFutureWitnessProgram returns whether script is a witness program of a
// version above 1.
func isFutureWitnessProgram(script []byte) bool {
	if !txscript.IsWitnessProgram(script) {
		return false
	}

	version, _, err := txscript.ExtractWitnessProgramInfo(script)
	return err == nil && version > 1
}

func parseInputKey(b []byte, scriptType ScriptType) (*btcec.PublicKey,
	ScriptType, error) {

	// Only compressed keys are eligible.
	key, err := ParseCompressedPoint(b)
	if err != nil {
		return nil, scriptType, ineligible(err.Error())
	}

	return key, scriptType, nil
}

func ineligible(desc string) error {
	return makeError(ErrIneligibleInput, desc)
}
