package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blockberries/kudos/app"
	"github.com/blockberries/kudos/config"
	"github.com/blockberries/kudos/types"
)

var (
	flagAdmins    []string
	flagTreasury  string
	flagEndowment uint64
	flagChainID   string
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Create and check genesis app state",
}

var genesisInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Print a genesis app state with the default parameters",
	RunE:  runGenesisInit,
}

var genesisValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a genesis app state file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGenesisValidate,
}

func init() {
	genesisInitCmd.Flags().StringSliceVar(&flagAdmins, "admin", nil, "base58 admin account, repeatable")
	genesisInitCmd.Flags().StringVar(&flagTreasury, "treasury", "", "base58 treasury account")
	genesisInitCmd.Flags().Uint64Var(&flagEndowment, "endowment", 0, "initial treasury balance")
	genesisInitCmd.Flags().StringVar(&flagChainID, "chain-id", "",
		"wrap the app state in a full genesis document for this chain")

	genesisCmd.AddCommand(genesisInitCmd)
	genesisCmd.AddCommand(genesisValidateCmd)
}

func runGenesisInit(cmd *cobra.Command, _ []string) error {
	gs := app.DefaultGenesisState()
	for _, s := range flagAdmins {
		a, err := types.ParseAccountID(s)
		if err != nil {
			return fmt.Errorf("admin %q: %w", s, err)
		}
		gs.Admins = append(gs.Admins, a)
	}
	if flagTreasury != "" {
		t, err := types.ParseAccountID(flagTreasury)
		if err != nil {
			return fmt.Errorf("treasury: %w", err)
		}
		gs.Treasury = t
	}
	gs.Endowment = types.Balance(flagEndowment)

	var out any = gs
	if flagChainID != "" {
		if err := gs.Validate(); err != nil {
			return err
		}
		doc, err := gs.Doc(flagChainID, time.Now().UTC())
		if err != nil {
			return err
		}
		out = doc
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runGenesisValidate(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path = cfg.GenesisFile
	}
	if path == "" {
		return fmt.Errorf("no genesis file given and %s is unset", config.EnvGenesisFile)
	}
	gs, err := readGenesis(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d admins, treasury %s, endowment %d\n",
		path, len(gs.Admins), gs.Treasury, gs.Endowment)
	return nil
}

func readGenesis(path string) (app.GenesisState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return app.GenesisState{}, fmt.Errorf("read genesis: %w", err)
	}
	gs, err := app.ParseGenesis(raw)
	if err != nil {
		return gs, fmt.Errorf("%s: %w", path, err)
	}
	return gs, nil
}
