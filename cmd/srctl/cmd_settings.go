package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srfabric/srctl/pkg/cli"
	"github.com/srfabric/srctl/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.srctl/settings.json.

Settings provide defaults for the global flags:
  redis     - Redis address backing mastership and rule storage (--redis)
  fabric    - fabric.yaml path (--fabric-config)
  topology  - topology.yaml path (--topology)
  instance  - mastership identity (--instance)
  root      - default root device for single-graph commands (--root)

Examples:
  srctl settings show
  srctl settings set redis redis.internal:6379
  srctl settings set root leaf1-ny
  srctl settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable("SETTING", "VALUE")
		printSetting := func(name, value string) {
			if value == "" {
				value = "(not set)"
			}
			t.Row(name, value)
		}

		printSetting("redis", s.RedisAddr)
		printSetting("fabric", s.GetFabricConfig())
		printSetting("topology", s.GetTopologyFile())
		printSetting("instance", s.InstanceID)
		printSetting("root", s.DefaultRoot)

		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		setting, value := args[0], args[1]

		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}

		switch setting {
		case "redis":
			s.SetRedisAddr(value)
		case "fabric", "fabric_config":
			s.SetFabricConfig(value)
		case "topology", "topology_file":
			s.SetTopologyFile(value)
		case "instance":
			s.SetInstanceID(value)
		case "root":
			s.SetDefaultRoot(value)
		default:
			return fmt.Errorf("unknown setting: %s (valid: redis, fabric, topology, instance, root)", setting)
		}

		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", setting, value)
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("All settings cleared.")
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show settings file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(settings.DefaultSettingsPath())
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
	settingsCmd.AddCommand(settingsPathCmd)
}
