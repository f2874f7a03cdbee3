package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nrenier/ICorNet-sub000/service"
)

var (
	graphDomain string
	graphDOT    bool
	graphEdge   int
)

var graphCmd = &cobra.Command{
	Use:   "graph <company>",
	Short: "Show the relationship graph of a company",
	Long: `Show the one-hop relationship graph of a company. --dot writes the
graph in Graphviz syntax, e.g. icornet graph "AlphaTech" --dot | dot -Tsvg.
--edge prints the properties of one relationship.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain, err := service.ReportDomainByTag(graphDomain)
		if err != nil {
			return err
		}
		a, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()

		var renderer service.Renderer
		if graphDOT {
			renderer = service.DOTRenderer{W: a.out}
		}
		loader := service.NewGraphLoader(a.client, domain, a.scope, renderer)

		g, err := loader.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if graphDOT {
			return nil
		}

		if graphEdge >= 0 {
			rel, err := loader.SelectEdge(graphEdge)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s -- %s\n", rel.SourceName, rel.TargetName)
			keys := make([]string, 0, len(rel.Properties))
			for k := range rel.Properties {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(a.out, "  %s: %v\n", k, rel.Properties[k])
			}
			return nil
		}

		if len(g.Edges) == 0 {
			fmt.Fprintf(a.out, "%s has no known relationships\n", args[0])
			return nil
		}
		w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSOURCE\tTARGET\tWEIGHT\tTYPE")
		for i, e := range g.Edges {
			kind, _ := e.Properties["tipo"].(string)
			fmt.Fprintf(w, "%d\t%s\t%s\t%g\t%s\n", i, g.NodeName(e.Source), g.NodeName(e.Target), e.Weight, kind)
		}
		return w.Flush()
	},
}

func init() {
	graphCmd.Flags().StringVarP(&graphDomain, "domain", "d", service.GenericDomain.Tag, "Domain: "+strings.Join(service.ReportDomainTags(), ", "))
	graphCmd.Flags().BoolVar(&graphDOT, "dot", false, "Write the graph in Graphviz DOT syntax")
	graphCmd.Flags().IntVar(&graphEdge, "edge", -1, "Show the properties of the edge with this index")

	rootCmd.AddCommand(graphCmd)
}
