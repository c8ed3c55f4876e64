package main

import (
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/srfabric/srctl/pkg/audit"
	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/orchestrate"
)

var subnetCmd = &cobra.Command{
	Use:   "subnet",
	Short: "Install or revoke subnet routing rules",
}

var subnetAddCmd = &cobra.Command{
	Use:   "add <device> <prefix> [prefix...]",
	Short: "Install IP rules for subnets at device's current EcmpSpg (populateSubnet)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		device := fabric.DeviceID(args[0])
		prefixes, err := parsePrefixes(args[1:])
		if err != nil {
			return err
		}

		ok := orch.PopulateSubnet(orchestrate.CandidatePoint{Device: device}, prefixes)
		audit.Log(recordOutcome(audit.NewEvent("subnet.add").WithRoot(device), ok))

		if !ok {
			return fmt.Errorf("populateSubnet failed for %s", device)
		}
		fmt.Println(green(fmt.Sprintf("installed subnet rules at %s for %v", device, prefixes)))
		return nil
	},
}

var subnetRemoveCmd = &cobra.Command{
	Use:   "remove <prefix> [prefix...]",
	Short: "Revoke IP rules for subnets (revokeSubnet)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefixes, err := parsePrefixes(args)
		if err != nil {
			return err
		}

		ok := orch.RevokeSubnet(prefixes)
		audit.Log(recordOutcome(audit.NewEvent("subnet.remove"), ok))

		if !ok {
			return fmt.Errorf("revokeSubnet failed for %v", prefixes)
		}
		fmt.Println(green(fmt.Sprintf("revoked subnet rules for %v", prefixes)))
		return nil
	},
}

func parsePrefixes(args []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, len(args))
	for i, a := range args {
		p, err := netip.ParsePrefix(a)
		if err != nil {
			return nil, fmt.Errorf("invalid subnet %q: %w", a, err)
		}
		out[i] = p
	}
	return out, nil
}

func init() {
	subnetCmd.AddCommand(subnetAddCmd)
	subnetCmd.AddCommand(subnetRemoveCmd)
}
