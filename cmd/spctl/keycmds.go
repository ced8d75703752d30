package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/silentpay/spd/internal/version"
	"github.com/silentpay/spd/silentpayments"
)

// addressCmd encodes the address of a key pair.
type addressCmd struct {
	ScanKey  string   `long:"scankey" required:"true" description:"Scan private key (hex), or compressed public key when no labels are requested"`
	SpendKey string   `long:"spendkey" required:"true" description:"Spend private or compressed public key (hex)"`
	Labels   []uint32 `long:"label" description:"Also print the address for this label; may be repeated"`

	cfg *config
}

type labelledAddress struct {
	Label   uint32 `json:"label"`
	Address string `json:"address"`
}

type addressReply struct {
	Address string            `json:"address"`
	Labels  []labelledAddress `json:"labels,omitempty"`
}

func (c *addressCmd) Execute(args []string) error {
	env, err := c.cfg.load()
	if err != nil {
		return err
	}

	scanPriv, scanPub, err := parseKeyPair(c.ScanKey)
	if err != nil {
		return fmt.Errorf("scan key: %w", err)
	}
	_, spendPub, err := parseKeyPair(c.SpendKey)
	if err != nil {
		return fmt.Errorf("spend key: %w", err)
	}
	if len(c.Labels) > 0 && scanPriv == nil {
		return errors.New("labels need the scan private key")
	}

	addr := silentpayments.NewAddress(env.net, scanPub, spendPub)
	encoded, err := env.codec.Encode(addr)
	if err != nil {
		return err
	}

	reply := addressReply{Address: encoded}
	for _, m := range c.Labels {
		labelled, err := env.codec.Normalize(addr).WithLabel(
			scanPriv, m,
		)
		if err != nil {
			return fmt.Errorf("label %d: %w", m, err)
		}
		encoded, err := env.codec.Encode(labelled)
		if err != nil {
			return err
		}
		reply.Labels = append(reply.Labels, labelledAddress{
			Label:   m,
			Address: encoded,
		})
	}

	return writeJSON(reply)
}

// newKeysCmd generates a fresh key pair.
type newKeysCmd struct {
	cfg *config
}

type newKeysReply struct {
	ScanKey     string `json:"scankey"`
	SpendKey    string `json:"spendkey"`
	ScanPubKey  string `json:"scanpubkey"`
	SpendPubKey string `json:"spendpubkey"`
	Address     string `json:"address"`
}

func (c *newKeysCmd) Execute(args []string) error {
	env, err := c.cfg.load()
	if err != nil {
		return err
	}

	scanKey, spendKey, err := silentpayments.GenerateKeys()
	if err != nil {
		return err
	}
	addr, err := env.codec.Encode(silentpayments.NewAddressFromPrivKeys(
		env.net, scanKey, spendKey,
	))
	if err != nil {
		return err
	}

	return writeJSON(newKeysReply{
		ScanKey:  privKeyHex(scanKey),
		SpendKey: privKeyHex(spendKey),
		ScanPubKey: hex.EncodeToString(
			scanKey.PubKey().SerializeCompressed(),
		),
		SpendPubKey: hex.EncodeToString(
			spendKey.PubKey().SerializeCompressed(),
		),
		Address: addr,
	})
}

// versionCmd prints the version.
type versionCmd struct{}

func (c *versionCmd) Execute(args []string) error {
	_, err := fmt.Fprintf(stdout, "spctl version %s\n", version.String())
	return err
}
