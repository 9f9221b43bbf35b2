package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jalapeno-sdn/srctl/pkg/engine"
	"github.com/jalapeno-sdn/srctl/pkg/spec"
)

var applyFile string

var applyCmd = &cobra.Command{
	Use:   "apply -f <pathrequest.yaml>",
	Short: "Apply a PathRequest: query, select, and program routes",
	Long: `Apply a PathRequest document.

Each VRF/family route group is resolved against the Jalapeno API, compiled
into SRv6 routes, and reconciled against the observed dataplane state.
Routes already present with the same egress are left untouched; changed
routes are replaced. Failures are isolated per route group.

Interrupting an apply (Ctrl-C) stops new operations; the route being
programmed is allowed to complete.

Examples:
  srctl apply -f vpn-request.yaml
  srctl -a http://jalapeno:8000 apply -f vpn-request.yaml -v`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(applyFile, "apply")
	},
}

var deleteFile string

var deleteCmd = &cobra.Command{
	Use:   "delete -f <pathrequest.yaml>",
	Short: "Delete the routes a PathRequest installed",
	Long: `Delete the routes a PathRequest describes.

Graph-path routes are identified by their destination_prefix without any
upstream query. L3VPN routes pinned to an exact-match prefix are deleted
directly; otherwise the matching prefixes are enumerated from the Jalapeno
API exactly as apply resolves them, so a containment search deletes every
route it installed. Routes that were never applied are skipped without
touching the dataplane.

Examples:
  srctl delete -f vpn-request.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRequest(deleteFile, "delete")
	},
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "filename", "f", "", "PathRequest file to apply")
	applyCmd.MarkFlagRequired("filename")
	deleteCmd.Flags().StringVarP(&deleteFile, "filename", "f", "", "PathRequest file to delete")
	deleteCmd.MarkFlagRequired("filename")
}

func runRequest(path, verb string) error {
	f, err := spec.LoadFile(path)
	if err != nil {
		return err
	}

	eng, cleanup, err := newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var report *engine.Report
	if verb == "delete" {
		report, err = eng.Delete(ctx, f)
	} else {
		report, err = eng.Apply(ctx, f)
	}
	if err != nil {
		return err
	}

	printReport(report, verb)
	exitCode = report.ExitCode()
	return nil
}
