package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCachedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cached",
		Short: "List the artefacts recorded in the cache",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			return c.app.Cached(persistentString(cmd, "cache"), format)
		},
	}

	cmd.Flags().String("format", "text", "Output format (text|json)")

	return cmd
}
