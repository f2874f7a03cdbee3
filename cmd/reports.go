package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/pkg/logger"
	"github.com/nrenier/ICorNet-sub000/service"
)

var (
	reportsDomain string
	reportsWait   bool
	downloadDir   string
	archive       bool
	deleteYes     bool
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Request, track and download PDF reports",
}

// withReports runs fn with a report manager for the --domain flag. With
// loadHistory the local list is filled from the server first.
func withReports(cmd *cobra.Command, loadHistory bool, fn func(a *app, m *service.ReportManager) error) error {
	domain, err := service.ReportDomainByTag(reportsDomain)
	if err != nil {
		return err
	}
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	m := a.reportManager(domain)
	if loadHistory {
		if err := m.LoadHistory(cmd.Context()); err != nil {
			return err
		}
	}
	return fn(a, m)
}

var reportsGenerateCmd = &cobra.Command{
	Use:   "generate <company>",
	Short: "Request a report for one company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReports(cmd, false, func(a *app, m *service.ReportManager) error {
			resp, err := m.Submit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return afterSubmit(cmd, a, m, resp)
		})
	},
}

var reportsFilieraCmd = &cobra.Command{
	Use:   "filiera",
	Short: "Request the supply-chain report of the domain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReports(cmd, false, func(a *app, m *service.ReportManager) error {
			resp, err := m.SubmitFiliera(cmd.Context())
			if err != nil {
				return err
			}
			return afterSubmit(cmd, a, m, resp)
		})
	},
}

func afterSubmit(cmd *cobra.Command, a *app, m *service.ReportManager, resp *model.GenerateResponse) error {
	id := resp.ReportID()
	if id != 0 {
		fmt.Fprintf(a.out, "Report %d requested\n", id)
	}
	if !reportsWait {
		return nil
	}
	if err := m.LoadHistory(cmd.Context()); err != nil {
		return err
	}
	if err := m.WatchPending(cmd.Context(), cfg.Reports.PollInterval()); err != nil {
		return err
	}
	if r, ok := m.Report(id); ok {
		fmt.Fprintf(a.out, "Report %d %s\n", r.ID, r.Status)
	}
	return nil
}

var reportsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List the reports of the domain, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReports(cmd, true, func(a *app, m *service.ReportManager) error {
			printReports(a, m.State().Reports)
			return nil
		})
	},
}

var reportsStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Refresh and show the status of one report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseReportID(args[0])
		if err != nil {
			return err
		}
		return withReports(cmd, true, func(a *app, m *service.ReportManager) error {
			if _, ok := m.Report(id); !ok {
				return fmt.Errorf("report %d not found", id)
			}
			if _, err := m.RefreshStatus(cmd.Context(), id); err != nil {
				return err
			}
			r, _ := m.Report(id)
			printReports(a, []model.Report{r})
			return nil
		})
	},
}

var reportsWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Poll until no report of the domain is pending",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReports(cmd, true, func(a *app, m *service.ReportManager) error {
			if err := m.WatchPending(cmd.Context(), cfg.Reports.PollInterval()); err != nil {
				return err
			}
			printReports(a, m.State().Reports)
			return nil
		})
	},
}

var reportsDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download a completed report",
	Long: `Download a completed report into --dir. With --archive the file is
also uploaded to the configured object storage bucket.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseReportID(args[0])
		if err != nil {
			return err
		}
		return withReports(cmd, true, func(a *app, m *service.ReportManager) error {
			dir := downloadDir
			if dir == "" {
				dir = cfg.Reports.DownloadDir
			}
			var saver service.Saver = service.FileSaver{Dir: dir}
			var archiveSaver *service.MinioSaver
			if archive {
				if !cfg.Archive.Enabled {
					return errors.New("archive storage is not configured")
				}
				archiveSaver, err = service.NewMinioSaver(&cfg.Archive)
				if err != nil {
					return err
				}
				saver = service.MultiSaver{saver, archiveSaver}
			}

			location, err := m.Download(cmd.Context(), id, saver)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %s\n", location)

			if archiveSaver != nil {
				link, err := archiveSaver.Link(cmd.Context(), filepath.Base(location))
				if err != nil {
					logger.Warn(cmd.Context(), "failed to create archive link", "report_id", id, "error", err)
					return nil
				}
				fmt.Fprintf(a.out, "Archive link (valid %s): %s\n", archiveSaver.LinkTTL(), link)
			}
			return nil
		})
	},
}

var reportsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Open a completed report in the system viewer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseReportID(args[0])
		if err != nil {
			return err
		}
		return withReports(cmd, true, func(a *app, m *service.ReportManager) error {
			return m.View(cmd.Context(), id, service.SystemOpener{})
		})
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete several reports at once",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := parseReportID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		return withReports(cmd, true, func(a *app, m *service.ReportManager) error {
			for _, id := range ids {
				m.Toggle(id)
			}
			if err := m.RequestDelete(); err != nil {
				return err
			}

			selected := m.Selected()
			if !deleteYes && !confirm(cmd.InOrStdin(), a.out, fmt.Sprintf("Delete %d report(s) %v?", len(selected), selected)) {
				m.CancelDelete()
				fmt.Fprintln(a.out, "Cancelled")
				return nil
			}
			return m.ConfirmDelete(cmd.Context())
		})
	},
}

func parseReportID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid report id %q", s)
	}
	return id, nil
}

func printReports(a *app, reports []model.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(a.out, "No reports")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPANY\tSTATUS\tCREATED\tFILE")
	for _, r := range reports {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.CompanyName, r.Status, r.CreatedAt.Local().Format("02/01/2006 15:04"), r.FileName)
	}
	_ = w.Flush()
}

func init() {
	reportsCmd.PersistentFlags().StringVarP(&reportsDomain, "domain", "d", service.GenericDomain.Tag, "Domain: "+strings.Join(service.ReportDomainTags(), ", "))

	for _, c := range []*cobra.Command{reportsGenerateCmd, reportsFilieraCmd} {
		c.Flags().BoolVarP(&reportsWait, "wait", "w", false, "Wait until the report is no longer pending")
	}
	reportsDownloadCmd.Flags().StringVar(&downloadDir, "dir", "", "Target directory (default from config)")
	reportsDownloadCmd.Flags().BoolVar(&archive, "archive", false, "Also upload the report to object storage")
	reportsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")

	reportsCmd.AddCommand(
		reportsGenerateCmd,
		reportsFilieraCmd,
		reportsHistoryCmd,
		reportsStatusCmd,
		reportsWaitCmd,
		reportsDownloadCmd,
		reportsViewCmd,
		reportsDeleteCmd,
	)
	rootCmd.AddCommand(reportsCmd)
}
