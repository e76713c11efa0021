package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/photocat/internal/tabular"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a fresh xlsx data file from the field catalog (OVERWRITES existing)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		if err := tabular.CreateDataFile(rt.cfg.DataFile, rt.reg); err != nil {
			return err
		}
		fmt.Printf("Created %s with %d fields.\n", rt.cfg.DataFile, len(rt.reg.Names()))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the xlsx data file into the store (REPLACES the observation table)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		store, err := rt.openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := tabular.Import(rt.cfg.DataFile, store, rt.reg); err != nil {
			return err
		}
		n, err := store.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d records from %s.\n", n, rt.cfg.DataFile)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all records back to the xlsx data file (REWRITES its data rows)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		store, err := rt.openStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := tabular.Export(store, rt.cfg.DataFile); err != nil {
			return err
		}
		n, err := store.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d records to %s.\n", n, rt.cfg.DataFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}
