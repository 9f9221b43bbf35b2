package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jalapeno-sdn/srctl/pkg/cli"
	"github.com/jalapeno-sdn/srctl/pkg/engine"
	"github.com/jalapeno-sdn/srctl/pkg/spec"
)

var l3vpnCmd = &cobra.Command{
	Use:   "l3vpn",
	Short: "Query and program L3VPN prefixes by route-target",
}

var (
	l3vpnRouteTarget string
	l3vpnPrefix      string
	l3vpnExactMatch  bool
	l3vpnCollection  string
	l3vpnApply       bool
	l3vpnPlatform    string
	l3vpnTableID     uint32
	l3vpnInterface   string
	l3vpnBSID        string
)

var l3vpnGetRoutesCmd = &cobra.Command{
	Use:   "get-routes",
	Short: "Look up L3VPN prefixes imported by a route-target",
	Long: `Look up the VPN prefixes a route-target imports, and optionally
install them with --apply.

Without --apply this is read-only. With --apply, an equivalent single-route
PathRequest is built and run through the normal reconciliation pipeline, so
the platform address flag (--outbound-interface on linux, --bsid on vpp)
is required.

Examples:
  srctl l3vpn get-routes --route-target 9:9
  srctl l3vpn get-routes --route-target 9:9 --prefix 10.1.0.0/16
  srctl l3vpn get-routes --route-target 9:9 --apply --platform linux --outbound-interface ens4
  srctl l3vpn get-routes --route-target 100:2 --apply --platform vpp --bsid 101::101 --table-id 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		req := engine.L3VPNRequest{
			RouteTarget:       l3vpnRouteTarget,
			Prefix:            l3vpnPrefix,
			ExactMatch:        l3vpnExactMatch,
			Collection:        l3vpnCollection,
			Platform:          spec.Platform(l3vpnPlatform),
			TableID:           l3vpnTableID,
			OutboundInterface: l3vpnInterface,
			BSID:              l3vpnBSID,
		}

		if l3vpnApply {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			report, err := eng.ApplyL3VPN(ctx, req)
			if err != nil {
				return err
			}
			printReport(report, "apply")
			exitCode = report.ExitCode()
			return nil
		}

		prefixes, err := eng.QueryL3VPN(context.Background(), req)
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(prefixes)
		}

		if len(prefixes) == 0 {
			fmt.Printf("No prefixes found for route-target %s\n", l3vpnRouteTarget)
			return nil
		}

		fmt.Printf("Prefixes for route-target %s\n\n", cli.Bold(l3vpnRouteTarget))
		t := cli.NewTable("PREFIX", "SID", "NEXT-HOP", "LABEL")
		for _, p := range prefixes {
			sid := p.SID()
			if sid == "" {
				sid = "-"
			}
			nextHop := p.NextHop
			if nextHop == "" {
				nextHop = "-"
			}
			label := "-"
			if p.Label() > 0 {
				label = fmt.Sprintf("%d", p.Label())
			}
			t.Row(p.CIDR(), sid, nextHop, label)
		}
		t.Flush()
		return nil
	},
}

func init() {
	flags := l3vpnGetRoutesCmd.Flags()
	flags.StringVar(&l3vpnRouteTarget, "route-target", "", "Route-target to query (ASN:NN)")
	flags.StringVar(&l3vpnPrefix, "prefix", "", "Restrict the lookup to one prefix")
	flags.BoolVar(&l3vpnExactMatch, "exact-match", false, "Match the prefix exactly instead of by containment")
	flags.StringVar(&l3vpnCollection, "collection", "", "Prefix collection (default l3vpn_v4_prefix)")
	flags.BoolVar(&l3vpnApply, "apply", false, "Install the matched prefixes as routes")
	flags.StringVar(&l3vpnPlatform, "platform", "linux", "Target platform for --apply (linux or vpp)")
	flags.Uint32Var(&l3vpnTableID, "table-id", 0, "Routing table / VRF FIB id for --apply")
	flags.StringVar(&l3vpnInterface, "outbound-interface", "", "Egress interface for --apply on linux")
	flags.StringVar(&l3vpnBSID, "bsid", "", "Binding SID for --apply on vpp")
	l3vpnGetRoutesCmd.MarkFlagRequired("route-target")

	l3vpnCmd.AddCommand(l3vpnGetRoutesCmd)
}
