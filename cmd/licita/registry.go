package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/licita/internal/recordstore"
)

func newStatsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record store counts and recently analysed tenders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.open(cmd.Context()); err != nil {
				return err
			}
			stats, err := a.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			activity, err := a.store.Activity(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printStats(a.out, stats, activity)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of recent tenders to show (store default when 0)")
	return cmd
}

func newCompanyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "company RFC",
		Short: "Show a registered company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.open(cmd.Context()); err != nil {
				return err
			}
			c, err := a.store.Company(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printCompany(a.out, c)
			return nil
		},
	}
}

func printStats(w io.Writer, s recordstore.Stats, activity []recordstore.Activity) error {
	fmt.Fprintf(w, "workspaces: %d\ntenders:    %d\ncompanies:  %d\n", s.Workspaces, s.Bids, s.Companies)
	if len(activity) == 0 {
		fmt.Fprintln(w, "\nno tenders analysed yet")
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TENDER\tISSUER\tSUBJECT\tUPDATED")
	for _, item := range activity {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			item.TenderNumber, orDash(item.Issuer), orDash(item.Subject), item.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func printCompany(w io.Writer, c recordstore.Company) {
	fmt.Fprintf(w, "%s\n  rfc:            %s\n", c.LegalName, c.RFC)
	fmt.Fprintf(w, "  representative: %s\n", orDash(c.Representative))
	fmt.Fprintf(w, "  role:           %s\n", orDash(c.Role))
	fmt.Fprintf(w, "  address:        %s\n", orDash(c.Address))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
