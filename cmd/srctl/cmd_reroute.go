package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srfabric/srctl/pkg/audit"
)

var rerouteCmd = &cobra.Command{
	Use:   "reroute",
	Short: "Trigger a full reprogram of every mastered root",
	Long: `reroute builds a fresh EcmpSpg for every locally-mastered device and
installs ECMP routing rules end to end, the handler's sr-reroute-network
trigger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		start := time.Now()

		ok := orch.StartPopulationProcess(ctx)

		audit.Log(recordOutcome(audit.NewEvent("reroute").
			WithStatus(orch.CurrentStatus().String()).
			WithCounter(orch.Counter()).
			WithDuration(time.Since(start)), ok))

		if !ok {
			return fmt.Errorf("reroute failed: status is %s", orch.CurrentStatus())
		}
		fmt.Println(green(fmt.Sprintf("reroute succeeded: status=%s counter=%d", orch.CurrentStatus(), orch.Counter())))
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Retry a full reprogram after a partial failure",
	Long:  `resume restarts a full reprogram, but only if the last cycle ended ABORTED.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		start := time.Now()

		ok := orch.ResumePopulationProcess(ctx)

		audit.Log(recordOutcome(audit.NewEvent("resume").
			WithStatus(orch.CurrentStatus().String()).
			WithCounter(orch.Counter()).
			WithDuration(time.Since(start)), ok))

		if !ok {
			return fmt.Errorf("resume failed: status is %s", orch.CurrentStatus())
		}
		fmt.Println(green(fmt.Sprintf("resume succeeded: status=%s counter=%d", orch.CurrentStatus(), orch.Counter())))
		return nil
	},
}
