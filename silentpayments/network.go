package silentpayments

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network identifies the bitcoin network an address is meant for.
type Network uint8

const (
	// MainNet is the main bitcoin network.
	MainNet Network = iota

	// TestNet is the public test network.
	TestNet

	// SigNet is the default signet.
	SigNet

	// RegTest is the regression test network.
	RegTest
)

// networks lists every known network in lookup order.
var networks = []Network{MainNet, TestNet, SigNet, RegTest}

// String returns the network name.
func (n Network) String() string {
	switch n {
	case MainNet:
		return "mainnet"
	case TestNet:
		return "testnet"
	case SigNet:
		return "signet"
	case RegTest:
		return "regtest"
	default:
		return fmt.Sprintf("Network(%d)", uint8(n))
	}
}

// Params returns the btcd chain parameters for the network.
func (n Network) Params() (*chaincfg.Params, error) {
	switch n {
	case MainNet:
		return &chaincfg.MainNetParams, nil
	case TestNet:
		return &chaincfg.TestNet3Params, nil
	case SigNet:
		return &chaincfg.SigNetParams, nil
	case RegTest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, makeError(ErrUnsupportedNetwork, n.String())
	}
}

// ParseNetwork returns the network with the given name.
func ParseNetwork(name string) (Network, error) {
	for _, n := range networks {
		if strings.EqualFold(name, n.String()) {
			return n, nil
		}
	}

	return 0, makeError(ErrUnsupportedNetwork, fmt.Sprintf("unknown "+
		"network %q", name))
}

// NetworkFromParams maps btcd chain parameters onto a Network.
func NetworkFromParams(params *chaincfg.Params) (Network, error) {
	switch params.Name {
	case chaincfg.MainNetParams.Name:
		return MainNet, nil

	case chaincfg.TestNet3Params.Name:
		return TestNet, nil

	case chaincfg.SigNetParams.Name:
		return SigNet, nil

	case chaincfg.RegressionNetParams.Name:
		return RegTest, nil

	default:
		return 0, makeError(ErrUnsupportedNetwork, fmt.Sprintf("no "+
			"silent payment network for chain %q", params.Name))
	}
}

// HRPTable maps networks to the human-readable part of their silent payment
// addresses.  The mapping is configuration: counterpart wallets do not all
// agree on the prefixes for the test networks.
type HRPTable map[Network]string

var (
	// DefaultHRPTable gives every network its own prefix.
	DefaultHRPTable = HRPTable{
		MainNet: "sp",
		TestNet: "tsp",
		SigNet:  "sssp",
		RegTest: "sprt",
	}

	// BIP352HRPTable shares the tsp prefix between testnet and signet.
	BIP352HRPTable = HRPTable{
		MainNet: "sp",
		TestNet: "tsp",
		SigNet:  "tsp",
		RegTest: "sprt",
	}
)

// HRP returns the human-readable part for the network.
func (t HRPTable) HRP(n Network) (string, error) {
	hrp, ok := t[n]
	if !ok || hrp == "" {
		return "", makeError(ErrUnsupportedNetwork, fmt.Sprintf("no "+
			"human-readable part for %v", n))
	}

	return hrp, nil
}

// Network returns the network using hrp.  When several networks share a
// prefix, the first one in MainNet, TestNet, SigNet, RegTest order wins.
func (t HRPTable) Network(hrp string) (Network, error) {
	for _, n := range networks {
		if p, ok := t[n]; ok && strings.EqualFold(p, hrp) {
			return n, nil
		}
	}

	return 0, makeError(ErrUnsupportedNetwork, fmt.Sprintf("unknown "+
		"human-readable part %q", hrp))
}

// PreferNetwork is Network, except that preferred is returned when it is one
// of the networks using hrp.
func (t HRPTable) PreferNetwork(hrp string, preferred Network) (Network,
	error) {

	if p, ok := t[preferred]; ok && strings.EqualFold(p, hrp) {
		return preferred, nil
	}

	return t.Network(hrp)
}

// ParseHRPTable parses a comma separated list of network=hrp overrides and
// applies them on top of base.  The base table is not modified.
func ParseHRPTable(base HRPTable, overrides string) (HRPTable, error) {
	table := make(HRPTable, len(base))
	for n, hrp := range base {
		table[n] = hrp
	}

	if strings.TrimSpace(overrides) == "" {
		return table, nil
	}

	for _, entry := range strings.Split(overrides, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 || parts[1] == "" {
			return nil, fmt.Errorf("malformed hrp override %q", entry)
		}

		n, err := ParseNetwork(parts[0])
		if err != nil {
			return nil, err
		}
		table[n] = strings.ToLower(parts[1])
	}

	return table, nil
}
