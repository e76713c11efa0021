package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/photocat/internal/grouping"
)

var groupCmd = &cobra.Command{
	Use:   "group [observation-a] [observation-b]",
	Short: "Merge observation A into B's group, propagating copy-on-merge fields",
	Args:  cobra.ExactArgs(2),
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

		engine := grouping.NewEngine(store, rt.reg, rt.logger)
		if err := engine.Group(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Grouped %s with %s.\n", args[0], args[1])
		return nil
	},
}

var ungroupCmd = &cobra.Command{
	Use:   "ungroup [observation]",
	Short: "Split an observation into its own fresh group",
	Args:  cobra.ExactArgs(1),
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

		engine := grouping.NewEngine(store, rt.reg, rt.logger)
		if err := engine.Ungroup(args[0]); err != nil {
			return err
		}
		fmt.Printf("Ungrouped %s.\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(ungroupCmd)
}
