// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/silentpay/spd/internal/log"
	"github.com/silentpay/spd/scandb"
	"github.com/silentpay/spd/silentpayments"
)

const (
	defaultLogLevel    = "info"
	defaultLogFilename = "spctl.log"
	defaultDbType      = "leveldb"
)

var (
	spctlHomeDir   = btcutil.AppDataDir("spctl", false)
	defaultLogDir  = filepath.Join(spctlHomeDir, "logs")
	defaultDataDir = filepath.Join(spctlHomeDir, "data")
	knownDbTypes   = scandb.SupportedDrivers()
)

// config defines the global options shared by every spctl command.
type config struct {
	Network     string `long:"network" description:"Network to use {mainnet, testnet, signet, regtest}"`
	TestNet     bool   `long:"testnet" description:"Use the test network"`
	SigNet      bool   `long:"signet" description:"Use the signet network"`
	RegTest     bool   `long:"regtest" description:"Use the regression test network"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	NoLogFile   bool   `long:"nologfile" description:"Only log to standard output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	HRPs        string `long:"hrps" description:"Comma separated network=hrp overrides of the address prefixes"`
	BIP352HRPs  bool   `long:"bip352hrps" description:"Share the tsp prefix between testnet and signet"`
	LegacyXOnly bool   `long:"legacyxonly" description:"Encode addresses with x-only keys and a bech32 checksum"`
}

// environment is the resolved form of the global options.
type environment struct {
	net   silentpayments.Network
	codec silentpayments.Codec
}

// checkNetwork returns an error unless the address shares the prefix of the
// active network.  Networks sharing a prefix cannot be told apart.
func (e *environment) checkNetwork(addr *silentpayments.Address) error {
	want, err := e.codec.HRPs.HRP(e.net)
	if err != nil {
		return err
	}
	got, err := e.codec.HRPs.HRP(addr.Network)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("address is for %v, not %v", addr.Network,
			e.net)
	}

	return nil
}

// storeOptions selects the result database.
type storeOptions struct {
	DbType  string `long:"dbtype" description:"Database backend to use for scan results"`
	DataDir string `short:"b" long:"datadir" description:"Directory to store scan results"`
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		DbType:  defaultDbType,
		DataDir: defaultDataDir,
	}
}

// validDbType returns whether or not dbType is a supported database type.
func validDbType(dbType string) bool {
	for _, knownType := range knownDbTypes {
		if dbType == knownType {
			return true
		}
	}

	return false
}

// open validates the options and opens the result store for net.
func (o *storeOptions) open(net silentpayments.Network) (*scandb.ResultStore,
	error) {

	if !validDbType(o.DbType) {
		return nil, fmt.Errorf("the specified database type [%v] is "+
			"invalid -- supported types %v", o.DbType, knownDbTypes)
	}

	dbPath := filepath.Join(o.DataDir, net.String(), "results_"+o.DbType)
	log.SctlLog.Debugf("Using %s result store at %s", o.DbType, dbPath)

	return scandb.Open(o.DbType, dbPath)
}

func defaultConfig() *config {
	return &config{
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
	}
}

// newParser returns a parser for cfg with every command registered.
func newParser(cfg *config) *flags.Parser {
	parser := flags.NewParser(cfg, flags.Default)

	parser.AddCommand("address", "Encode an address",
		"Encode the address of a scan and spend key pair, optionally "+
			"with labels", &addressCmd{cfg: cfg})
	parser.AddCommand("newkeys", "Generate keys",
		"Generate a fresh scan and spend key pair and print its address",
		&newKeysCmd{cfg: cfg})
	parser.AddCommand("send", "Derive outputs",
		"Derive the taproot outputs paying one or more addresses from "+
			"the inputs of a transaction", &sendCmd{cfg: cfg})
	parser.AddCommand("scan", "Scan transactions",
		"Scan a file of transactions for outputs paying an address",
		&scanCmd{cfg: cfg, Store: defaultStoreOptions()})
	parser.AddCommand("results", "List stored results",
		"List the scan results kept in the result store",
		&resultsCmd{cfg: cfg, Store: defaultStoreOptions()})
	parser.AddCommand("tweak", "Compute tweak data",
		"Compute the per-transaction tweak data light clients scan with",
		&tweakCmd{cfg: cfg})
	parser.AddCommand("version", "Show version",
		"Show the spctl version", &versionCmd{})

	return parser
}

// load validates the global options and sets up logging.
func (c *config) load() (*environment, error) {
	const funcName = "loadConfig"

	env := &environment{net: silentpayments.MainNet}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	if c.Network != "" {
		net, err := silentpayments.ParseNetwork(c.Network)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", funcName, err)
		}
		numNets++
		env.net = net
	}
	if c.TestNet {
		numNets++
		env.net = silentpayments.TestNet
	}
	if c.SigNet {
		numNets++
		env.net = silentpayments.SigNet
	}
	if c.RegTest {
		numNets++
		env.net = silentpayments.RegTest
	}
	if numNets > 1 {
		return nil, fmt.Errorf("%s: the network, testnet, signet and "+
			"regtest options can't be used together -- choose one",
			funcName)
	}

	base := silentpayments.DefaultHRPTable
	if c.BIP352HRPs {
		base = silentpayments.BIP352HRPTable
	}
	hrps, err := silentpayments.ParseHRPTable(base, c.HRPs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", funcName, err)
	}
	env.codec = silentpayments.Codec{
		HRPs:      hrps,
		Format:    silentpayments.PayloadCompressed,
		Preferred: env.net,
	}
	if c.LegacyXOnly {
		env.codec.Format = silentpayments.PayloadXOnly
	}

	if !c.NoLogFile {
		logFile := filepath.Join(c.LogDir, env.net.String(),
			defaultLogFilename)
		if err := log.InitLogRotator(logFile); err != nil {
			return nil, fmt.Errorf("%s: %w", funcName, err)
		}
	}
	if err := log.ParseAndSetDebugLevels(c.DebugLevel); err != nil {
		return nil, fmt.Errorf("%s: %w", funcName, err)
	}

	log.SctlLog.Debugf("Using %v with %v address payloads", env.net,
		env.codec.Format)

	return env, nil
}
