package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sguter90/airmaestro/pkg/models"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Device management commands",
	Long:  `Commands for registering the monitors readings are pulled from.`,
}

var addDeviceCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Register or update a device",
	Example: `  airmaestro device add 1 --mac aa:bb:cc:dd:ee:01 --source gateway \
      --config base_url=http://aranet.local --config token=secret`,
	Args: cobra.ExactArgs(1),
	RunE: runAddDevice,
}

var listDevicesCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	RunE:  runListDevices,
}

var deleteDeviceCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a device; its stored readings are kept",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteDevice,
}

var enableDeviceCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Include a device in fetch runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDeviceEnabled(cmd, args[0], true)
	},
}

var disableDeviceCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Exclude a device from fetch runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDeviceEnabled(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(deviceCmd)
	deviceCmd.AddCommand(addDeviceCmd, listDevicesCmd, deleteDeviceCmd, enableDeviceCmd, disableDeviceCmd)

	f := addDeviceCmd.Flags()
	f.String("mac", "", "MAC address of the device")
	f.String("name", "", "display name")
	f.String("source", "gateway", "reading source (gateway, csv)")
	f.StringArray("config", nil, "source configuration as key=value, repeatable")
	f.Bool("disabled", false, "register the device without pulling it")
}

func runAddDevice(cmd *cobra.Command, args []string) error {
	app := appFromCommand(cmd)
	f := cmd.Flags()

	mac, _ := f.GetString("mac")
	name, _ := f.GetString("name")
	source, _ := f.GetString("source")
	pairs, _ := f.GetStringArray("config")
	disabled, _ := f.GetBool("disabled")

	cfg, err := parseConfigPairs(pairs)
	if err != nil {
		return err
	}

	p, ok := newPullerRegistry().Get(source)
	if !ok {
		return fmt.Errorf("unknown source: %q", source)
	}
	if err := p.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid %s config: %w", source, err)
	}

	dm, err := app.DB()
	if err != nil {
		return err
	}

	device := &models.Device{
		ID:      args[0],
		MAC:     mac,
		Name:    name,
		Source:  source,
		Config:  cfg,
		Enabled: !disabled,
	}
	if err := dm.SaveDevice(cmd.Context(), device); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Device %s saved (source: %s)\n", device.ID, device.Source)
	return nil
}

func runListDevices(cmd *cobra.Command, args []string) error {
	app := appFromCommand(cmd)

	dm, err := app.DB()
	if err != nil {
		return err
	}

	devices, err := dm.ListDevices(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMAC\tNAME\tSOURCE\tENABLED")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", d.ID, d.MAC, d.Name, d.Source, d.Enabled)
	}
	return w.Flush()
}

func runDeleteDevice(cmd *cobra.Command, args []string) error {
	app := appFromCommand(cmd)

	dm, err := app.DB()
	if err != nil {
		return err
	}

	if err := dm.DeleteDevice(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete device %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Device %s deleted\n", args[0])
	return nil
}

func setDeviceEnabled(cmd *cobra.Command, id string, enabled bool) error {
	app := appFromCommand(cmd)

	dm, err := app.DB()
	if err != nil {
		return err
	}

	if err := dm.SetDeviceEnabled(cmd.Context(), id, enabled); err != nil {
		return fmt.Errorf("failed to update device %s: %w", id, err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Device %s %s\n", id, state)
	return nil
}

// parseConfigPairs turns key=value flags into a config map
func parseConfigPairs(pairs []string) (map[string]string, error) {
	cfg := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid config %q (expected key=value)", pair)
		}
		cfg[key] = value
	}
	return cfg, nil
}
