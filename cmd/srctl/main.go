// srctl - SRv6 path selection and route programming for Jalapeno
//
// A CLI tool that turns declarative PathRequest documents into installed
// dataplane routes:
//   - Queries the Jalapeno API for graph paths and L3VPN prefixes
//   - Selects paths by strategy (best-paths, next-best-path)
//   - Compiles SRv6 encap routes per VRF and address family
//   - Reconciles desired routes against observed Linux or VPP state
//
// Reconciliation is idempotent: re-applying an already-applied request is a
// no-op, and changed routes are replaced, never mutated in place.
//
// Examples:
//
//	srctl apply -f pathrequest.yaml
//	srctl delete -f pathrequest.yaml
//	srctl get-paths -g ipv4_graph -s amsterdam -d rome --type next-best-path --same-hop-limit 2
//	srctl l3vpn get-routes --route-target 9:9
//	srctl status --state-store 10.0.0.5:6379
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jalapeno-sdn/srctl/pkg/cli"
	"github.com/jalapeno-sdn/srctl/pkg/engine"
	"github.com/jalapeno-sdn/srctl/pkg/jalapeno"
	"github.com/jalapeno-sdn/srctl/pkg/statestore"
	"github.com/jalapeno-sdn/srctl/pkg/util"
	"github.com/jalapeno-sdn/srctl/pkg/version"
)

var (
	// Global option flags
	apiServer  string
	verbose    bool
	jsonOutput bool

	// State store (route journal) flags
	stateStoreAddr string
	stateStoreDB   int
	stateSSHHost   string
	stateSSHUser   string
	stateSSHPass   string

	// exitCode is set by commands whose outcome is partial (some routes
	// applied, some failed) rather than a hard error.
	exitCode = engine.ExitOK
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error: ")+err.Error())
		os.Exit(engine.ExitFor(err))
	}
	os.Exit(exitCode)
}

var rootCmd = &cobra.Command{
	Use:               "srctl",
	Short:             "SRv6 Path Selection and Route Programming",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `srctl realizes declarative PathRequests as SRv6 routes on Linux or VPP.

Path computation lives in the Jalapeno API; srctl queries it, selects
paths, and reconciles the result against observed dataplane state.

  srctl apply -f <pathrequest.yaml>`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if apiServer == "" {
			apiServer = os.Getenv("JALAPENO_API_SERVER")
		}
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&apiServer, "api-server", "a", "", "Jalapeno API server URL (default $JALAPENO_API_SERVER or "+jalapeno.DefaultBaseURL+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.PersistentFlags().StringVar(&stateStoreAddr, "state-store", "", "Redis address for the route journal (host:port; disabled when empty)")
	rootCmd.PersistentFlags().IntVar(&stateStoreDB, "state-db", 0, "Redis database for the route journal")
	rootCmd.PersistentFlags().StringVar(&stateSSHHost, "state-ssh-host", "", "Reach the route journal via an SSH tunnel through this host")
	rootCmd.PersistentFlags().StringVar(&stateSSHUser, "state-ssh-user", "", "SSH user for the state store tunnel")
	rootCmd.PersistentFlags().StringVar(&stateSSHPass, "state-ssh-pass", "", "SSH password for the state store tunnel")

	for _, cmd := range []*cobra.Command{getPathsCmd, l3vpnGetRoutesCmd, statusCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	}

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(getPathsCmd)
	rootCmd.AddCommand(l3vpnCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("srctl dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("srctl %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}

// newEngine builds the engine from the global flags. The returned cleanup
// closes the route journal when one was opened.
func newEngine() (*engine.Engine, func(), error) {
	api := jalapeno.NewClient(jalapeno.Config{BaseURL: apiServer})

	var journal *statestore.Store
	cleanup := func() {}
	if stateStoreAddr != "" {
		var err error
		journal, err = statestore.Open(statestore.Options{
			Addr:    stateStoreAddr,
			DB:      stateStoreDB,
			SSHHost: stateSSHHost,
			SSHUser: stateSSHUser,
			SSHPass: stateSSHPass,
		})
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { journal.Close() }
	}

	return engine.New(engine.Config{API: api, Journal: journal}), cleanup, nil
}

// openJournal connects to the route journal for read-only commands.
func openJournal() (*statestore.Store, error) {
	if stateStoreAddr == "" {
		return nil, fmt.Errorf("state store not configured: use --state-store <host:port>")
	}
	return statestore.Open(statestore.Options{
		Addr:    stateStoreAddr,
		DB:      stateStoreDB,
		SSHHost: stateSSHHost,
		SSHUser: stateSSHUser,
		SSHPass: stateSSHPass,
	})
}

// printReport renders per-group outcomes and returns the counts printed.
func printReport(report *engine.Report, verb string) {
	added, removed, unchanged, failed := 0, 0, 0, 0
	for _, g := range report.Groups {
		scope := cli.DotPad(g.Scope(), 30)
		switch {
		case g.Result == nil && len(g.RouteErrors) == 0:
			fmt.Printf("%s %s\n", scope, cli.Dim("skipped"))
		case g.Result == nil:
			fmt.Printf("%s %s\n", scope, cli.Red("failed"))
		case len(g.Result.Failed) > 0:
			fmt.Printf("%s %s (%d added, %d removed, %d failed)\n",
				scope, cli.Red("partially failed"), g.Result.Added, g.Result.Removed, len(g.Result.Failed))
		default:
			fmt.Printf("%s %s (%d added, %d removed, %d unchanged)\n",
				scope, cli.Green("applied"), g.Result.Added, g.Result.Removed, g.Result.Unchanged)
		}

		for _, re := range g.RouteErrors {
			fmt.Printf("  %s route '%s': %v\n", cli.Yellow("!"), re.Name, re.Err)
		}
		if g.Result != nil {
			added += g.Result.Added
			removed += g.Result.Removed
			unchanged += g.Result.Unchanged
			failed += len(g.Result.Failed)
			for _, op := range g.Result.Failed {
				fmt.Printf("  %s %s %s: %v\n", cli.Red("x"), op.Operation, op.Route.Prefix, op.Err)
			}
		}
	}

	summary := fmt.Sprintf("%s: %d added, %d removed, %d unchanged", verb, added, removed, unchanged)
	if failed > 0 {
		summary += fmt.Sprintf(", %s", cli.Red(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Println("\n" + summary)
}
