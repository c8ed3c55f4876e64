// srctl drives and inspects the segment-routing default routing handler
// from outside a real SDN control plane:
//
//	srctl reroute                     # full reprogram of every mastered root
//	srctl resume                      # retry after a partial failure
//	srctl status                      # current lifecycle status + rule counter
//	srctl topology show --root <dev>  # print a device's EcmpSpg
//	srctl subnet add/remove           # populateSubnet/revokeSubnet
//	srctl link fail/up <src> <dst>    # simulate a link-status change
//	srctl settings ...                # persisted CLI defaults
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/srfabric/srctl/pkg/audit"
	"github.com/srfabric/srctl/pkg/cli"
	"github.com/srfabric/srctl/pkg/settings"
	"github.com/srfabric/srctl/pkg/srouting/devconfig"
	"github.com/srfabric/srctl/pkg/srouting/fabric"
	"github.com/srfabric/srctl/pkg/srouting/orchestrate"
	"github.com/srfabric/srctl/pkg/srouting/populate"
	"github.com/srfabric/srctl/pkg/srouting/rulepop"
	"github.com/srfabric/srctl/pkg/util"
	"github.com/srfabric/srctl/pkg/version"
)

var (
	redisAddr    string
	fabricConfig string
	topologyFile string
	instanceID   string
	rootDevice   string
	verbose      bool

	userSettings *settings.Settings
	fabricView   fabric.View
	rulePop      *rulepop.RedisPopulator
	orch         *orchestrate.Orchestrator

	// stopMastershipRenewal cancels the background renewal goroutine started
	// during PersistentPreRunE. Never set for help/version/settings/audit
	// commands, which skip Redis entirely.
	stopMastershipRenewal func()
)

// mastershipTTL is the lease duration campaignScript grants a holder;
// RedisMastership must renew before it expires to stay master.
const mastershipTTL = 30 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "srctl",
	Short:         "Segment-routing default routing handler control tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `srctl drives the segment-routing default routing handler: it builds
ECMP shortest-path trees over a fabric topology and programs per-device
forwarding rules through a RulePopulator backend.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isHelpOrVersion(cmd) {
			return nil
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if redisAddr == "" {
			redisAddr = userSettings.RedisAddr
		}
		if fabricConfig == "" {
			fabricConfig = userSettings.GetFabricConfig()
		}
		if topologyFile == "" {
			topologyFile = userSettings.GetTopologyFile()
		}
		if instanceID == "" {
			instanceID = userSettings.InstanceID
		}
		if rootDevice == "" {
			rootDevice = userSettings.DefaultRoot
		}

		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		auditPath := "/var/log/srctl/audit.log"
		auditLogger, err := audit.NewFileLogger(auditPath, audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}

		if isSettingsOrAudit(cmd) {
			return nil
		}

		if redisAddr == "" {
			return fmt.Errorf("redis address required: use --redis or 'srctl settings set redis <addr>'")
		}

		mem, err := loadTopology(topologyFile)
		if err != nil {
			return fmt.Errorf("loading topology: %w", err)
		}
		mastership := fabric.NewRedisMastership(redisAddr, instanceOrHostname(), mastershipTTL)
		fabricView = fabric.NewRedisFabricView(mem, mastership)

		if err := campaignForAll(cmd.Context(), mem, mastership); err != nil {
			util.Warnf("mastership campaign: %v", err)
		}
		stopMastershipRenewal = mastership.StartRenewing(cmd.Context(), func() ([]fabric.DeviceID, error) {
			devices, err := mem.Devices(cmd.Context())
			if err != nil {
				return nil, err
			}
			ids := make([]fabric.DeviceID, len(devices))
			for i, d := range devices {
				ids[i] = d.ID
			}
			return ids, nil
		})

		config, err := devconfig.LoadYAML(fabricConfig)
		if err != nil {
			return fmt.Errorf("loading fabric config: %w", err)
		}

		// Rule storage lives in DB 0, mastership in DB 1 (see NewRedisMastership).
		rulePop = rulepop.NewRedisPopulator(redisAddr, 0)
		pop := populate.New(config, rulePop)
		orch = orchestrate.New(fabricView, pop, rulePop)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopMastershipRenewal != nil {
			stopMastershipRenewal()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Redis address backing mastership and rule storage")
	rootCmd.PersistentFlags().StringVar(&fabricConfig, "fabric-config", "", "Path to fabric.yaml (device edge/router/subnet config)")
	rootCmd.PersistentFlags().StringVar(&topologyFile, "topology", "", "Path to topology.yaml (simulated device/link graph)")
	rootCmd.PersistentFlags().StringVar(&instanceID, "instance", "", "This controller instance's mastership identity")
	rootCmd.PersistentFlags().StringVar(&rootDevice, "root", "", "Default root device for single-graph commands")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "cycle", Title: "Population Cycle:"},
		&cobra.Group{ID: "inspect", Title: "Inspection:"},
		&cobra.Group{ID: "mutate", Title: "Routing Changes:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{rerouteCmd, resumeCmd} {
		cmd.GroupID = "cycle"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{statusCmd, topologyCmd, auditCmd} {
		cmd.GroupID = "inspect"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{subnetCmd, linkCmd, deviceCmd} {
		cmd.GroupID = "mutate"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
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

func isHelpOrVersion(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version":
			return true
		}
	}
	return false
}

// isSettingsOrAudit reports commands that need settings loaded and the
// audit logger installed, but never touch Redis, the topology, or the
// RulePopulator.
func isSettingsOrAudit(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "audit":
			return true
		}
	}
	return false
}

// campaignForAll claims mastership of every device in mem for this CLI
// invocation. A one-shot tool has no peer instances to federate with, so it
// always campaigns for the whole topology rather than a discovered subset.
func campaignForAll(ctx context.Context, mem *fabric.MemView, mastership *fabric.RedisMastership) error {
	devices, err := mem.Devices(ctx)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if _, err := mastership.Campaign(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// recordOutcome marks e successful or failed based on ok, for commands
// where the Orchestrator returns a bool rather than an error.
func recordOutcome(e *audit.Event, ok bool) *audit.Event {
	if ok {
		return e.WithSuccess()
	}
	return e.WithError(fmt.Errorf("operation returned false"))
}

func instanceOrHostname() string {
	if instanceID != "" {
		return instanceID
	}
	host, err := os.Hostname()
	if err != nil {
		return "srctl"
	}
	return host
}

func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
