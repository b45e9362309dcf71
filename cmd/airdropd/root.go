package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blockberries/airdrop/config"
)

// newRootCmd builds the command tree. Each tree owns its viper
// instance so tests can build as many as they like.
func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:          "airdropd",
		Short:        "Rate-limited airdrop ledger application",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("home", ".airdropd", "Directory holding config.toml, genesis.json and data/")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "json", "Log format: json or console")
	pf.String("log-file", "", "Also append logs to this file")
	_ = v.BindPFlag(config.KeyHome, pf.Lookup("home"))
	_ = v.BindPFlag(config.KeyLogLevel, pf.Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogFormat, pf.Lookup("log-format"))
	_ = v.BindPFlag(config.KeyLogFile, pf.Lookup("log-file"))

	root.AddCommand(
		newStartCmd(v),
		newGenesisCmd(v),
		newKeygenCmd(),
		newSignCmd(),
	)
	return root
}
