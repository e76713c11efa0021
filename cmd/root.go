package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/agentic-research/photocat/internal/catalog"
	"github.com/agentic-research/photocat/internal/config"
	"github.com/agentic-research/photocat/internal/logging"
	"github.com/agentic-research/photocat/internal/schema"
)

var cfgViper *viper.Viper

var rootCmd = &cobra.Command{
	Use:   "photocat",
	Short: "Photocat: catalog image files into a grouped observation store",
	Long: `Photocat scans directories of images, catalogs one observation record
per image (EXIF metadata, content hash, fresh identifiers) in an
embedded SQLite store, keeps an .xlsx workbook mirror in sync, and
merges or splits observation groups with a schema-driven
copy-on-merge rule.`,
	SilenceUsage: true,
}

func init() {
	cfgViper = config.NewViper()

	flags := rootCmd.PersistentFlags()
	flags.String("data", "", "Path to the xlsx data file")
	flags.String("db", "", "Path to the SQLite database")
	flags.String("catalog", "", "Path to the field catalog (HCL)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")

	_ = cfgViper.BindPFlag("data.file", flags.Lookup("data"))
	_ = cfgViper.BindPFlag("database.path", flags.Lookup("db"))
	_ = cfgViper.BindPFlag("catalog.path", flags.Lookup("catalog"))
	_ = cfgViper.BindPFlag("log.level", flags.Lookup("log-level"))
}

// runtime bundles the pieces every subcommand needs. The field catalog
// is loaded exactly once per run and never reloaded.
type runtime struct {
	cfg    config.AppConfig
	logger *zap.Logger
	reg    *schema.Registry
}

func newRuntime() (*runtime, error) {
	cfg, err := config.Load(cfgViper)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	reg, err := schema.Load(cfg.CatalogPath)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, reg: reg}, nil
}

func (r *runtime) openStore() (*catalog.Store, error) {
	return catalog.Open(r.cfg.DatabasePath)
}

func (r *runtime) close() {
	_ = r.logger.Sync() // safe to ignore
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
