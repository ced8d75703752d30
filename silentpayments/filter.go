package silentpayments

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/gcs"
	"github.com/btcsuite/btcd/btcutil/gcs/builder"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// taprootScript returns the P2TR script OP_1 <x-only key>.
func taprootScript(key [32]byte) []byte {
	script := make([]byte, 0, 2+xOnlyLength)
	script = append(script, txscript.OP_1, txscript.OP_DATA_32)
	return append(script, key[:]...)
}

// FilterScripts returns the P2TR scripts the first output (k = 0) paying the
// scanner would have in each transaction described by tweakData, for the bare
// address and every configured label.  Later outputs are only looked for once
// a block has matched, so k = 0 suffices for a filter query.
func (s *Scanner) FilterScripts(tweakData []*btcec.PublicKey) [][]byte {
	scripts := make([][]byte, 0, len(tweakData)*len(s.targets))
	for _, data := range tweakData {
		sharedSecret, err := ECDH(data, &s.ecdhKey)
		if err != nil {
			continue
		}
		t, err := SharedSecretTweak(sharedSecret, 0)
		if err != nil {
			continue
		}

		for _, key := range s.candidateKeys(t) {
			if key != nil {
				scripts = append(scripts, taprootScript(*key))
			}
		}
	}

	return scripts
}

// MatchBlockFilter reports whether any of the scripts is in the BIP-0158
// basic filter of the block.  An empty filter matches nothing.
func MatchBlockFilter(filter *gcs.Filter, blockHash *chainhash.Hash,
	scripts [][]byte) (bool, error) {

	if filter == nil || filter.N() == 0 || len(scripts) == 0 {
		return false, nil
	}

	key := builder.DeriveKey(blockHash)
	return filter.MatchAny(key, scripts)
}
