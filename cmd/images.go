package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/photocat/internal/catalog"
	"github.com/agentic-research/photocat/internal/ingest"
)

func newIngestor(rt *runtime, store *catalog.Store) *ingest.Ingestor {
	return ingest.NewIngestor(store, osfs.New("/"), ingest.ExifReader{}, rt.logger)
}

// absDir anchors a user-supplied directory for the root-mounted
// filesystem.
func absDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

func printReport(report ingest.Report) {
	fmt.Printf("Added %d, skipped %d, failed %d.\n",
		report.Added, report.Skipped, len(report.Failed))
	for _, f := range report.Failed {
		fmt.Printf("  %s: %v\n", f.Path, f.Err)
	}
}

var addCmd = &cobra.Command{
	Use:   "add [dir] [paths...]",
	Short: "Catalog the given images (relative to dir), skipping paths already stored",
	Args:  cobra.MinimumNArgs(2),
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

		report, err := newIngestor(rt, store).AddImages(absDir(args[0]), args[1:])
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [dir]",
	Short: "Compare the images under dir against the store (read-only)",
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

		c, err := newIngestor(rt, store).Compare(absDir(args[0]))
		if err != nil {
			return err
		}
		n, err := store.Count()
		if err != nil {
			return err
		}
		fmt.Printf("%d records in data.\n", n)
		fmt.Printf("%d in folder only.\n", c.FolderOnly)
		fmt.Printf("%d in data only.\n", c.StoreOnly)
		fmt.Printf("%d in both.\n", c.Both)
		return nil
	},
}

var loadCmd = &cobra.Command{
	Use:   "load [dir]",
	Short: "Catalog every image under dir that the store does not know yet",
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

		report, err := newIngestor(rt, store).LoadNew(absDir(args[0]))
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

var renameApply bool

var renameCmd = &cobra.Command{
	Use:   "rename [dir]",
	Short: "Rename images under dir to their capture-timestamp name (dry-run unless --apply)",
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

		fsys := osfs.New("/")
		dir := absDir(args[0])
		paths, err := ingest.ListImages(fsys, dir)
		if err != nil {
			return err
		}
		in := newIngestor(rt, store)
		plan, err := in.PlanRenames(dir, paths, renameApply)
		if err != nil {
			return err
		}
		for _, r := range plan {
			fmt.Printf("%s -> %s\n", r.From, r.To)
		}
		if !renameApply {
			fmt.Printf("%d renames planned (dry run, use --apply).\n", len(plan))
		} else {
			fmt.Printf("%d renames done.\n", len(plan))
		}
		return nil
	},
}

func init() {
	renameCmd.Flags().BoolVar(&renameApply, "apply", false, "Perform the renames instead of printing them")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(renameCmd)
}
