package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/licita/internal/desk"
	"github.com/JaimeStill/licita/internal/workspace"
	"github.com/JaimeStill/licita/pkg/formatting"
)

func newAddCmd(a *app) *cobra.Command {
	var deferRun bool
	var outDir string

	cmd := &cobra.Command{
		Use:   "add ID FILE...",
		Short: "Add documents to a workspace and process them",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			id := args[0]
			for _, path := range args[1:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				src, err := d.AddFile(cmd.Context(), id, filepath.Base(path), data)
				if err != nil {
					return fmt.Errorf("add %s: %w", path, err)
				}
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", src.ID, src.Name, src.Label)
			}
			if deferRun {
				return nil
			}
			if err := d.ProcessAll(cmd.Context(), id, false); err != nil {
				return err
			}
			return saveDocument(a, d, id, outDir)
		},
	}
	cmd.Flags().BoolVar(&deferRun, "defer", false, "add the documents without processing them")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for generated price documents")
	return cmd
}

func newProcessCmd(a *app) *cobra.Command {
	var source, outDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "process ID",
		Short: "Process pending workspace sources",
		Long: `Process runs every pending source of the workspace through the
extraction backend. With --source only that source is run; with --force
every non-raw source is run again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			id := args[0]
			if err := run(cmd, d, id, source, force); err != nil {
				return err
			}
			return saveDocument(a, d, id, outDir)
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "source id or file name to process")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "reprocess sources that already completed")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for generated price documents")
	cmd.MarkFlagsMutuallyExclusive("source", "force")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID SOURCE",
		Short: "Remove a source from a workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			src, err := resolveSource(d, args[0], args[1])
			if err != nil {
				return err
			}
			return d.RemoveSource(cmd.Context(), args[0], src.ID)
		},
	}
}

func newFilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "files ID",
		Short: "List the files stored for a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			files, err := d.Files(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tSIZE\tPAGES\tMODIFIED")
			for _, f := range files {
				pages := "-"
				if f.Pages > 0 {
					pages = strconv.Itoa(f.Pages)
				}
				modified := "-"
				if !f.ModifiedAt.IsZero() {
					modified = f.ModifiedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					f.Name, f.Type, formatting.FormatBytes(f.Size, 1), pages, modified)
			}
			return tw.Flush()
		},
	}
}

func newDownloadCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download ID NAME",
		Short: "Download a stored workspace file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			data, err := d.Download(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if output == "-" {
				_, err = a.out.Write(data)
				return err
			}
			if output == "" {
				output = filepath.Base(args[1])
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path, - for stdout")
	return cmd
}

func run(cmd *cobra.Command, d *desk.Desk, id, source string, force bool) error {
	if source == "" {
		return d.ProcessAll(cmd.Context(), id, force)
	}
	src, err := resolveSource(d, id, source)
	if err != nil {
		return err
	}
	return d.Process(cmd.Context(), id, src.ID)
}

// resolveSource finds a source by id, falling back to its file name.
func resolveSource(d *desk.Desk, id, ref string) (workspace.Source, error) {
	w, err := d.Get(id)
	if err != nil {
		return workspace.Source{}, err
	}
	if s := w.Source(ref); s != nil {
		return *s, nil
	}
	if s := w.SourceByName(ref); s != nil {
		return *s, nil
	}
	return workspace.Source{}, fmt.Errorf("workspace %s has no source %q", id, ref)
}

// saveDocument writes the price document generated by the last run.
func saveDocument(a *app, d *desk.Desk, id, dir string) error {
	doc, ok := d.Document(id)
	if !ok {
		return nil
	}
	path := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", doc.Filename, err)
	}
	fmt.Fprintf(a.out, "wrote %s\n", path)
	return nil
}
