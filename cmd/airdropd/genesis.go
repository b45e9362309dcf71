package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blockberries/airdrop/config"
	"github.com/blockberries/airdrop/state"
	"github.com/blockberries/airdrop/types"
)

func newGenesisCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Print the genesis app-state document",
		Long: `Print the JSON app-state the host passes to the application at
genesis. Endow accounts with --account ADDRESS=BALANCE, repeated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			g := state.DefaultGenesis()
			delay, _ := f.GetUint64("delay")
			ed, _ := f.GetUint64("existential-deposit")
			limit, _ := f.GetUint64("max-amount")
			g.Params.Delay = types.Height(delay)
			g.Params.ExistentialDeposit = types.Balance(ed)
			g.Params.MaxAmount = types.Amount(limit)

			accounts, _ := f.GetStringArray("account")
			for _, a := range accounts {
				ga, err := parseGenesisAccount(a)
				if err != nil {
					return err
				}
				g.Accounts = append(g.Accounts, ga)
			}
			// Catch bad addresses and duplicates before anyone ships it.
			if _, _, err := g.Build(""); err != nil {
				return err
			}

			out, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return err
			}
			if write, _ := f.GetBool("write"); write {
				cfg, err := config.Load(v)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(cfg.GenesisFile), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(cfg.GenesisFile, append(out, '\n'), 0o644); err != nil {
					return fmt.Errorf("write genesis: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), cfg.GenesisFile)
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	d := state.DefaultParams()
	f := cmd.Flags()
	f.Uint64("delay", uint64(d.Delay), "Blocks an account waits between airdrops")
	f.Uint64("existential-deposit", uint64(d.ExistentialDeposit), "Smallest balance an account may be created with")
	f.Uint64("max-amount", uint64(d.MaxAmount), "Largest amount one airdrop may request (0 = unbounded)")
	f.StringArray("account", nil, "Endowment as ADDRESS=BALANCE")
	f.Bool("write", false, "Write to the genesis file instead of stdout")
	f.String("genesis-file", "", "Genesis file to write (default <home>/genesis.json)")
	_ = v.BindPFlag(config.KeyGenesis, f.Lookup("genesis-file"))
	return cmd
}

func parseGenesisAccount(s string) (state.GenesisAccount, error) {
	addr, bal, ok := strings.Cut(s, "=")
	if !ok {
		return state.GenesisAccount{}, fmt.Errorf("account %q: want ADDRESS=BALANCE", s)
	}
	n, err := strconv.ParseUint(bal, 10, 64)
	if err != nil {
		return state.GenesisAccount{}, fmt.Errorf("account %q: %w", s, err)
	}
	return state.GenesisAccount{Address: addr, Balance: types.Balance(n)}, nil
}
