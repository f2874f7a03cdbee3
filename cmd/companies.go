package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/service"
)

var (
	companiesDomain  string
	companiesSelect  string
	companiesRefresh bool
)

var companiesCmd = &cobra.Command{
	Use:   "companies [term]",
	Short: "Search the companies of a domain",
	Long: `Search the company list of a domain. Without a term the first 20
companies are listed. --select prints the full record of one company.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, err := service.ReportDomainByTag(companiesDomain)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := a.session.Context(cmd.Context(), domain.Tag)
		catalog := service.NewCatalog(a.client, domain, a.entityCache(), cfg.Cache.EntityTTL())
		if companiesRefresh {
			if err := catalog.Invalidate(); err != nil {
				return err
			}
		}

		selector := service.NewSelector(a.scope, catalog, domain.FilterFields)
		if err := selector.Load(ctx); err != nil {
			return err
		}

		if companiesSelect != "" {
			entity, err := selector.Select(ctx, companiesSelect)
			if err != nil {
				return err
			}
			printEntity(a, entity)
			return nil
		}

		if len(args) == 1 {
			selector.SetTerm(args[0])
		}
		suggestions := selector.State().Suggestions
		if len(suggestions) == 0 {
			fmt.Fprintln(a.out, "No companies found")
			return nil
		}

		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSECTOR")
		for _, e := range suggestions {
			fmt.Fprintf(w, "%s\t%s\n", e.Name(), strings.Join(sectorsOf(e), ", "))
		}
		return w.Flush()
	},
}

func sectorsOf(e model.Entity) []string {
	if s := e.Strings("settore"); len(s) > 0 {
		return s
	}
	return e.Strings("sector")
}

func printEntity(a *app, e model.Entity) {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		values := e.Strings(k)
		if values == nil {
			values = []string{fmt.Sprint(e[k])}
		}
		fmt.Fprintf(w, "%s:\t%s\n", k, strings.Join(values, ", "))
	}
	_ = w.Flush()
}

func init() {
	companiesCmd.Flags().StringVarP(&companiesDomain, "domain", "d", service.GenericDomain.Tag, "Domain: "+strings.Join(service.ReportDomainTags(), ", "))
	companiesCmd.Flags().StringVar(&companiesSelect, "select", "", "Show the full record of the named company")
	companiesCmd.Flags().BoolVar(&companiesRefresh, "refresh", false, "Bypass the local company cache")

	rootCmd.AddCommand(companiesCmd)
}
