package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dxos/version-check/internal/merge"
)

func newMergeCmd(a *app) *cobra.Command {
	var opts merge.Options
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge package.json dependency sections, then run git merge-file",
		Long: `merge resolves concurrent edits to the dependency sections of a package.json
and then performs a line merge of the rest of the file with git merge-file.

It is meant to be used as a git merge driver:

  [merge "version-check"]
    driver = version-check merge --ancestor %O --ours %A --theirs %B`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Merger = a.merger
			status, err := merge.Files(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if status != 0 {
				return &ExitError{Code: status}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Ancestor, "ancestor", "", "Common ancestor version")
	cmd.Flags().StringVar(&opts.Ours, "ours", "", "Our version; receives the merge result")
	cmd.Flags().StringVar(&opts.Theirs, "theirs", "", "Their version")
	for _, name := range []string{"ancestor", "ours", "theirs"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}
