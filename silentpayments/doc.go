/*
Package silentpayments implements BIP-0352 silent payments: reusable static
addresses from which senders derive fresh, unlinkable taproot outputs without
any interaction with the receiver.

A receiver publishes an Address made of a scan key B_scan and a spend key
B_spend.  A sender with eligible inputs (P2PKH, P2WPKH, P2SH-P2WPKH or P2TR)
whose private keys sum to a derives

	input_hash = hash_BIP0352/Inputs(outpoint_L || A)
	S          = input_hash·a·B_scan
	t_k        = hash_BIP0352/SharedSecret(S || k)
	P_k        = B_spend + t_k·G

for k = 0, 1, ...  The receiver recomputes S as input_hash·b_scan·A from the
public input keys alone and recognizes every output whose x-only key equals
P_k.  The private key of a detected output is (b_spend + t_k) mod n.

Labels let a receiver tell payments apart without publishing a second scan
key: the labelled spend key is B_m = B_spend + hash_BIP0352/Label(b_scan||m)·G.

The Generator type implements the sending side and the Scanner type the
receiving side.  Both hold only immutable configuration and may be shared
between goroutines.  Address strings are produced and parsed by a Codec, whose
human-readable-part table and payload layout are configurable.

Errors returned by this package are of type Error and carry an ErrorKind that
can be tested with errors.Is.
*/
package silentpayments
