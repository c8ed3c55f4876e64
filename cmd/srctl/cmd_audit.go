package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srfabric/srctl/pkg/audit"
	"github.com/srfabric/srctl/pkg/cli"
)

var (
	auditOperation string
	auditRoot      string
	auditLimit     int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the population-cycle audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := audit.Query(audit.Filter{
			Operation: auditOperation,
			Root:      auditRoot,
			Limit:     auditLimit,
		})
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		t := cli.NewTable("TIME", "OPERATION", "ROOT", "STATUS", "OUTCOME", "COUNTER")
		for _, e := range events {
			outcome := green("ok")
			if !e.Success {
				outcome = red("failed")
			}
			t.Row(
				e.Timestamp.Format("2006-01-02T15:04:05"),
				e.Operation,
				e.Root,
				e.Status,
				outcome,
				fmt.Sprintf("%d", e.RuleCounter),
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditOperation, "operation", "", "Filter by operation name")
	auditCmd.Flags().StringVar(&auditRoot, "filter-root", "", "Filter by root device")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum events to show")
}
