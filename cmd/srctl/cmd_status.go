package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jalapeno-sdn/srctl/pkg/cli"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show routes recorded in the journal",
	Long: `Show the routes srctl has recorded in its state store.

The journal is informational: reconciliation always works from observed
dataplane state, never from the journal. Entries survive across
invocations and hosts, so this answers "what did srctl install, where".

Examples:
  srctl status --state-store 10.0.0.5:6379
  srctl status --state-store 127.0.0.1:6379 --state-ssh-host router1 --state-ssh-user admin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openJournal()
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.List(context.Background())
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(records)
		}

		if len(records) == 0 {
			fmt.Println("No routes recorded")
			return nil
		}

		t := cli.NewTable("PLATFORM", "TABLE", "PREFIX", "EGRESS", "ROUTE", "APPLIED")
		for _, r := range records {
			egress := r.Interface
			if egress == "" {
				egress = r.BSID
			}
			if len(r.SegmentList) > 0 {
				egress += " via " + cli.SegmentList(r.SegmentList)
			}
			name := r.RouteName
			if name == "" {
				name = "-"
			}
			t.Row(r.Platform, fmt.Sprintf("%d", r.Table), r.Prefix, egress, name, r.AppliedAt)
		}
		t.Flush()
		return nil
	},
}
