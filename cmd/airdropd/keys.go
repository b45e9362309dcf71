package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blockberries/airdrop/auth"
	"github.com/blockberries/airdrop/types"
)

type keyInfo struct {
	Account   string `json:"account"`
	PublicKey string `json:"public_key"`
	Seed      string `json:"seed"`
}

func newKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 key and print its account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seedHex, _ := cmd.Flags().GetString("seed")
			var key ed25519.PrivateKey
			if seedHex == "" {
				_, priv, err := ed25519.GenerateKey(rand.Reader)
				if err != nil {
					return err
				}
				key = priv
			} else {
				k, err := parseSeed(seedHex)
				if err != nil {
					return err
				}
				key = k
			}

			pub := key.Public().(ed25519.PublicKey)
			out, err := json.MarshalIndent(keyInfo{
				Account:   auth.AccountFromPublicKey(pub).String(),
				PublicKey: hex.EncodeToString(pub),
				Seed:      hex.EncodeToString(key.Seed()),
			}, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().String("seed", "", "Derive the key from this 32-byte hex seed instead of generating one")
	return cmd
}

func parseSeed(s string) (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	if len(raw) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed: want %d bytes, got %d", ed25519.SeedSize, len(raw))
	}
	return ed25519.NewKeyFromSeed(raw), nil
}

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Build a signed transaction and print it as hex",
	}
	pf := cmd.PersistentFlags()
	pf.String("seed", "", "Hex seed of the signing key")
	pf.String("chain-id", "", "Chain the transaction is valid on")
	pf.Uint64("nonce", 0, "Signer nonce")
	_ = cmd.MarkPersistentFlagRequired("seed")
	_ = cmd.MarkPersistentFlagRequired("chain-id")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "airdrop AMOUNT",
			Short: "Request AMOUNT freshly minted units",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("amount: %w", err)
				}
				return signAndPrint(cmd, types.AirdropCall(types.Amount(amount)))
			},
		},
		&cobra.Command{
			Use:   "transfer TO AMOUNT",
			Short: "Move AMOUNT to account TO",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				to, err := types.ParseAccountID(args[0])
				if err != nil {
					return err
				}
				amount, err := strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("amount: %w", err)
				}
				return signAndPrint(cmd, types.TransferCall(to, types.Balance(amount)))
			},
		},
		&cobra.Command{
			Use:   "store-value VALUE",
			Short: "Store VALUE in the value slot",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("value: %w", err)
				}
				return signAndPrint(cmd, types.StoreValueCall(uint32(v)))
			},
		},
	)
	return cmd
}

func signAndPrint(cmd *cobra.Command, call types.Call) error {
	seedHex, _ := cmd.Flags().GetString("seed")
	chainID, _ := cmd.Flags().GetString("chain-id")
	nonce, _ := cmd.Flags().GetUint64("nonce")
	if chainID == "" {
		return errors.New("chain-id must not be empty")
	}
	key, err := parseSeed(seedHex)
	if err != nil {
		return err
	}
	tx, err := auth.Sign(key, chainID, nonce, call)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(tx))
	return err
}
