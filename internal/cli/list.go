package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/labforge/internal/config"
	"github.com/ppiankov/labforge/internal/reporter"
	"github.com/ppiankov/labforge/internal/suite"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions and their instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			registry, err := suite.Registry(suite.Config{Versions: cfg.Versions, Package: cfg.Package})
			if err != nil {
				return fmt.Errorf("build registry: %w", err)
			}
			reporter.NewTextReporter(os.Stdout, isTerminal()).PrintList(registry)
			return nil
		},
	}
}
