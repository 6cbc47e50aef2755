package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/forage/internal/app"
)

func (c *CLI) newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every declared source the cache is missing",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, _ := cmd.Flags().GetInt("jobs")
			out, _ := cmd.Flags().GetString("out")
			disabled, _ := cmd.Flags().GetStringArray("disable")
			quiet, _ := cmd.Flags().GetBool("quiet")

			return c.app.Fetch(cmd.Context(), app.FetchOptions{
				Manifest: persistentString(cmd, "manifest"),
				CacheDir: persistentString(cmd, "cache"),
				OutDir:   out,
				Jobs:     jobs,
				Disabled: disabled,
				Quiet:    quiet,
			})
		},
	}

	cmd.Flags().StringP("out", "o", "", "Export fetched artefacts into this directory")
	cmd.Flags().IntP("jobs", "j", 0, "Maximum concurrent fetches (0 = one per CPU)")
	cmd.Flags().StringArray("disable", nil, "Reject manifests using this source type (repeatable)")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress progress recording")

	return cmd
}
