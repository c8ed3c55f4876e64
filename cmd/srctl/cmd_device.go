package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srfabric/srctl/pkg/audit"
	"github.com/srfabric/srctl/pkg/srouting/fabric"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Simulate a device joining the configured topology",
}

var deviceAddCmd = &cobra.Command{
	Use:   "add <deviceId>",
	Short: "Add the device to the simulated topology and address its ports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, ok := fabricView.(*fabric.RedisFabricView)
		if !ok {
			return fmt.Errorf("internal error: fabricView is not a *fabric.RedisFabricView")
		}
		id := fabric.DeviceID(args[0])
		mem.MemView.AddDevice(id)

		start := time.Now()
		ok = orch.PopulatePortAddressing(id)

		audit.Log(recordOutcome(audit.NewEvent("device.add").
			WithRoot(id).
			WithDuration(time.Since(start)), ok))

		if !ok {
			return fmt.Errorf("port addressing failed for %s", id)
		}
		fmt.Println(green(fmt.Sprintf("added %s: port addressing populated, retrying=%v", id, orch.RetryingPortAddressing(id))))
		return nil
	},
}

func init() {
	deviceCmd.AddCommand(deviceAddCmd)
}
