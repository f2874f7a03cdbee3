package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var dashboardSector string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show dashboard counters and recent reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()

		if dashboardSector != "" {
			companies, err := a.client.SectorCompanies(ctx, dashboardSector)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d companies in %s\n", len(companies), dashboardSector)
			for _, c := range companies {
				fmt.Fprintf(a.out, "  %s\n", c.Name())
			}
			return nil
		}

		stats, err := a.client.DashboardStats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Companies:     %d\n", stats.CompanyCount)
		fmt.Fprintf(a.out, "Sectors:       %d\n", stats.SectorCount)
		fmt.Fprintf(a.out, "Reports today: %d\n", stats.ReportsToday)
		fmt.Fprintf(a.out, "Last update:   %s\n\n", stats.LastUpdate)

		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SECTOR\tCOMPANIES")
		for _, s := range stats.SectorDistribution {
			fmt.Fprintf(w, "%s\t%d\n", s.Settore, s.Count)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		recent, err := a.client.RecentReports(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, "\nRecent reports:")
		printReports(a, recent)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardSector, "sector", "", "List the companies of one sector")
	rootCmd.AddCommand(dashboardCmd)
}
