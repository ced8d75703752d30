package main

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/silentpay/spd/silentpayments"
)

// parsePrivKey parses a hex encoded 32-byte private key.
func parsePrivKey(str string) (*btcec.PrivateKey, error) {
	b, err := hex.DecodeString(str)
	if err != nil {
		return nil, fmt.Errorf("private key is not hex: %w", err)
	}
	s, err := silentpayments.SerializeScalar256(b)
	if err != nil {
		return nil, err
	}
	scalar, err := silentpayments.ScalarFromBytes(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return btcec.PrivKeyFromScalar(scalar), nil
}

// parseKeyPair parses a hex private key or a hex compressed public key.  The
// private key is nil when a public key was given.
func parseKeyPair(str string) (*btcec.PrivateKey, *btcec.PublicKey, error) {
	if len(str) == 2*33 {
		b, err := hex.DecodeString(str)
		if err != nil {
			return nil, nil, fmt.Errorf("public key is not hex: %w",
				err)
		}
		pub, err := silentpayments.ParseCompressedPoint(b)
		if err != nil {
			return nil, nil, err
		}
		return nil, pub, nil
	}

	priv, err := parsePrivKey(str)
	if err != nil {
		return nil, nil, err
	}
	return priv, priv.PubKey(), nil
}

func privKeyHex(key *btcec.PrivateKey) string {
	return hex.EncodeToString(key.Serialize())
}
