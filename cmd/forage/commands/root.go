// Package commands implements the CLI commands for the forage tool.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.trai.ch/forage/internal/app"
	"go.trai.ch/forage/internal/build"
	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for forage.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	rootCmd := &cobra.Command{
		Use:           "forage",
		Short:         "Fetch and cache declared external sources",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	// Flag parse failures are command line mistakes and must exit with
	// the usage status, not the catch-all one.
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return zerr.Wrap(domain.ErrUsage, err.Error())
	})

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("manifest", "m", "", "Path to the manifest (default: discover forage.toml/forage.yaml upward)")
	rootCmd.PersistentFlags().StringP("cache", "c", "", "Cache root directory (default: $FORAGE_CACHE or the user cache dir)")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newFetchCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newCachedCmd())
	rootCmd.AddCommand(c.newVerifyCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func persistentString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}

// usageArgs wraps a positional-argument validator so its failures carry
// the usage error class.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return zerr.Wrap(domain.ErrUsage, err.Error())
		}
		return nil
	}
}
