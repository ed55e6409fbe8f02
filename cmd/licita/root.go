package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "licita",
		Short: "Manage tender bid workspaces",
		Long: `licita keeps tender bid workspaces in step with the record store.
Documents added to a workspace are classified, sent to the extraction
backend, and merged into the workspace analysis; the compliance findings
are then refined against the uploaded sources.`,
		SilenceUsage: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to the desk configuration file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging and progress output")
	flags.StringVar(&a.metricsOut, "metrics-out", "", "write ingestion metrics to this textfile on exit")

	root.AddCommand(
		newWorkspacesCmd(a),
		newCreateCmd(a),
		newRenameCmd(a),
		newOpenCmd(a),
		newDeleteCmd(a),
		newAddCmd(a),
		newProcessCmd(a),
		newRemoveCmd(a),
		newFilesCmd(a),
		newDownloadCmd(a),
		newChecklistCmd(a),
		newReindexCmd(a),
		newStatsCmd(a),
		newCompanyCmd(a),
	)
	return root
}
