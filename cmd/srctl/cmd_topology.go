package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srfabric/srctl/pkg/cli"
	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/spg"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Inspect ECMP shortest-path graphs",
}

var topologyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Build and print the EcmpSpg rooted at --root",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rootDevice == "" {
			return fmt.Errorf("root device required: use --root or 'srctl settings set root <device>'")
		}
		root := fabric.DeviceID(rootDevice)

		graph, err := spg.Build(context.Background(), fabricView, root)
		if err != nil {
			return fmt.Errorf("building EcmpSpg for %s: %w", root, err)
		}

		fmt.Printf("root: %s\n\n", graph.Root())
		t := cli.NewTable("DEPTH", "TARGET", "VIA")
		for _, e := range graph.Entries() {
			for _, path := range e.Paths {
				t.Row(fmt.Sprintf("%d", e.Depth), string(e.Target), viaPathString(path))
			}
		}
		t.Flush()
		return nil
	},
}

var topologyCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the EcmpSpg last committed for --root by the Orchestrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		if rootDevice == "" {
			return fmt.Errorf("root device required: use --root or 'srctl settings set root <device>'")
		}
		root := fabric.DeviceID(rootDevice)

		graph, ok := orch.Current(root)
		if !ok {
			return fmt.Errorf("no current EcmpSpg for %s: run 'srctl reroute' first", root)
		}

		t := cli.NewTable("DEPTH", "TARGET", "VIA")
		for _, e := range graph.Entries() {
			for _, path := range e.Paths {
				t.Row(fmt.Sprintf("%d", e.Depth), string(e.Target), viaPathString(path))
			}
		}
		t.Flush()
		return nil
	},
}

func viaPathString(path spg.ViaPath) string {
	if len(path) == 0 {
		return "(direct)"
	}
	s := ""
	for i, id := range path {
		if i > 0 {
			s += ","
		}
		s += string(id)
	}
	return s
}

func init() {
	topologyCmd.AddCommand(topologyShowCmd)
	topologyCmd.AddCommand(topologyCurrentCmd)
}
