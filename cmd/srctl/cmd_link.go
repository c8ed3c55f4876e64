package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srfabric/srctl/pkg/audit"
	"github.com/srfabric/srctl/pkg/srouting/fabric"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Simulate a link-status change against the configured topology",
}

var linkFailCmd = &cobra.Command{
	Use:   "fail <srcDevice:srcPort> <dstDevice:dstPort>",
	Short: "Remove the link from the simulated topology and repair affected routes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, mem, err := resolveSimulatedLink(args[0], args[1])
		if err != nil {
			return err
		}
		mem.RemoveLink(link)

		start := time.Now()
		ok := orch.PopulateRoutingRulesForLinkStatusChange(context.Background(), &link)

		audit.Log(recordOutcome(audit.NewEvent("linkstatus.fail").
			WithFailedLink(link).
			WithStatus(orch.CurrentStatus().String()).
			WithDuration(time.Since(start)), ok))

		if !ok {
			return fmt.Errorf("link-status-change repair failed: status is %s", orch.CurrentStatus())
		}
		fmt.Println(green(fmt.Sprintf("repaired routes around %s: status=%s", link, orch.CurrentStatus())))
		return nil
	},
}

var linkUpCmd = &cobra.Command{
	Use:   "up <srcDevice:srcPort> <dstDevice:dstPort>",
	Short: "Add the link to the simulated topology and recompute affected routes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, mem, err := resolveSimulatedLink(args[0], args[1])
		if err != nil {
			return err
		}
		mem.AddLink(link)

		start := time.Now()
		ok := orch.PopulateRoutingRulesForLinkStatusChange(context.Background(), nil)

		audit.Log(recordOutcome(audit.NewEvent("linkstatus.up").
			WithFailedLink(link).
			WithStatus(orch.CurrentStatus().String()).
			WithDuration(time.Since(start)), ok))

		if !ok {
			return fmt.Errorf("link-status-change recompute failed: status is %s", orch.CurrentStatus())
		}
		fmt.Println(green(fmt.Sprintf("recomputed routes after %s came up: status=%s", link, orch.CurrentStatus())))
		return nil
	},
}

// resolveSimulatedLink parses two "device:port" endpoints and returns the
// Link plus the underlying MemView the simulated FabricView wraps.
func resolveSimulatedLink(a, b string) (fabric.Link, *fabric.MemView, error) {
	src, err := parseEndpoint(a)
	if err != nil {
		return fabric.Link{}, nil, err
	}
	dst, err := parseEndpoint(b)
	if err != nil {
		return fabric.Link{}, nil, err
	}

	mem, ok := fabricView.(*fabric.RedisFabricView)
	if !ok {
		return fabric.Link{}, nil, fmt.Errorf("internal error: fabricView is not a *fabric.RedisFabricView")
	}
	return fabric.Link{Src: src, Dst: dst}, mem.MemView, nil
}

func init() {
	linkCmd.AddCommand(linkFailCmd)
	linkCmd.AddCommand(linkUpCmd)
}
