package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srfabric/srctl/pkg/cli"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the Orchestrator's current lifecycle status",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := orch.CurrentStatus()

		fmt.Println(cli.StatusLine("status", statusColor(status.String())))
		fmt.Println(cli.StatusLine("rule_counter", fmt.Sprintf("%d", orch.Counter())))
		return nil
	},
}

func statusColor(status string) string {
	switch status {
	case "SUCCEEDED":
		return green(status)
	case "ABORTED":
		return red(status)
	case "STARTED":
		return yellow(status)
	default:
		return status
	}
}
