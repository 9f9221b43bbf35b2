package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jalapeno-sdn/srctl/pkg/cli"
	"github.com/jalapeno-sdn/srctl/pkg/jalapeno"
	"github.com/jalapeno-sdn/srctl/pkg/selector"
)

var (
	pathsGraph        string
	pathsSource       string
	pathsDestination  string
	pathsType         string
	pathsMetric       string
	pathsDirection    string
	pathsLimit        int
	pathsSameHopLimit int
	pathsPlusOneLimit int
)

var getPathsCmd = &cobra.Command{
	Use:   "get-paths",
	Short: "Query and select candidate paths between two nodes",
	Long: `Query the Jalapeno API for candidate paths and apply a selection
strategy, without touching any dataplane.

Strategies:
  best-paths       first N candidates in upstream rank order (--limit)
  next-best-path   the best path, plus up to --same-hop-limit equal-hop
                   alternates and --plus-one-limit one-hop-longer alternates

The upstream ranking for the requested metric is authoritative; srctl
never re-sorts candidates locally.

Examples:
  srctl get-paths -g ipv4_graph -s amsterdam -d rome
  srctl get-paths -g ipv4_graph -s amsterdam -d rome --metric low-latency --limit 3
  srctl get-paths -g ipv6_graph -s berlin -d paris --type next-best-path --same-hop-limit 2 --plus-one-limit 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		strat := selector.Strategy{
			Type:         selector.StrategyType(pathsType),
			Limit:        pathsLimit,
			SameHopLimit: pathsSameHopLimit,
			PlusOneLimit: pathsPlusOneLimit,
		}
		result, err := eng.GetPaths(context.Background(), jalapeno.GraphQuery{
			Graph:       pathsGraph,
			Source:      pathsSource,
			Destination: pathsDestination,
			Metric:      pathsMetric,
			Direction:   pathsDirection,
		}, strat)
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(result)
		}

		if len(result) == 0 {
			fmt.Printf("No paths found from %s to %s in %s\n", pathsSource, pathsDestination, pathsGraph)
			return nil
		}

		fmt.Printf("Paths from %s to %s (%s)\n\n", cli.Bold(pathsSource), cli.Bold(pathsDestination), pathsGraph)
		t := cli.NewTable("RANK", "CRITERION", "HOPS", "COST", "SEGMENTS")
		for _, p := range result {
			segments := p.Path.SRv6.USID
			if len(p.Path.SRv6.SIDList) > 0 {
				segments = cli.SegmentList(p.Path.SRv6.SIDList)
			}
			cost := "-"
			if p.Path.Cost > 0 {
				cost = fmt.Sprintf("%.2f", p.Path.Cost)
			}
			t.Row(
				fmt.Sprintf("%d", p.Rank),
				string(p.Criterion),
				fmt.Sprintf("%d", p.Path.HopCount),
				cost,
				segments,
			)
		}
		t.Flush()

		if verbose {
			for _, p := range result {
				if len(p.Path.Hops) > 0 {
					fmt.Printf("\n[%d] %s\n", p.Rank, strings.Join(p.Path.Hops, " -> "))
				}
			}
		}
		return nil
	},
}

func init() {
	getPathsCmd.Flags().StringVarP(&pathsGraph, "graph", "g", "", "Graph collection to query (e.g. ipv4_graph)")
	getPathsCmd.Flags().StringVarP(&pathsSource, "source", "s", "", "Source node")
	getPathsCmd.Flags().StringVarP(&pathsDestination, "destination", "d", "", "Destination node")
	getPathsCmd.Flags().StringVar(&pathsType, "type", string(selector.BestPaths), "Selection strategy (best-paths, next-best-path)")
	getPathsCmd.Flags().StringVar(&pathsMetric, "metric", "", "Path metric (low-latency, least-utilized; default hop count)")
	getPathsCmd.Flags().StringVar(&pathsDirection, "direction", "", "Query direction (default outbound)")
	getPathsCmd.Flags().IntVar(&pathsLimit, "limit", 4, "Candidates to select for best-paths")
	getPathsCmd.Flags().IntVar(&pathsSameHopLimit, "same-hop-limit", 0, "Equal-hop alternates for next-best-path")
	getPathsCmd.Flags().IntVar(&pathsPlusOneLimit, "plus-one-limit", 0, "Best+1-hop alternates for next-best-path")
	getPathsCmd.MarkFlagRequired("graph")
	getPathsCmd.MarkFlagRequired("source")
	getPathsCmd.MarkFlagRequired("destination")
}
