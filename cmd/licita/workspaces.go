package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/licita/internal/workspace"
)

func newWorkspacesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "workspaces",
		Aliases: []string{"ls"},
		Short:   "List workspaces",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSOURCES\tTENDER\tCREATED")
			for _, w := range d.List() {
				tender := "-"
				if w.Analysis != nil && !w.Analysis.TenderNumber.Empty() {
					tender = w.Analysis.TenderNumber.Trim()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					w.ID, w.Name, sourceSummary(w), tender, w.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			w, err := d.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, w.ID)
			return nil
		},
	}
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a workspace",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return d.Rename(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}
}

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open ID",
		Short: "Open a workspace and refine its compliance findings",
		Long: `Open makes the workspace active, prints its sources and analysis, and
waits for the compliance refinement to finish.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			w, err := d.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printWorkspace(a.out, w)
			d.Wait()
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a workspace locally and in the record store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			return d.Delete(cmd.Context(), args[0])
		},
	}
}

func newReindexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the record store index from its file storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			n, err := d.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "reindexed %d workspaces\n", n)
			return nil
		},
	}
}

func newChecklistCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checklist ID ITEM",
		Short: "Toggle an audit checklist item by index or text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			checked, err := d.ToggleChecklist(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			state := "unchecked"
			if checked {
				state = "checked"
			}
			fmt.Fprintln(a.out, state)
			return nil
		},
	}
}

func sourceSummary(w workspace.Workspace) string {
	done := 0
	for _, s := range w.Sources {
		if s.Status == workspace.StatusDone {
			done++
		}
	}
	return fmt.Sprintf("%d/%d", done, len(w.Sources))
}
