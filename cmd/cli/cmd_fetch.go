package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sguter90/airmaestro/pkg/ingest"
	"github.com/sguter90/airmaestro/pkg/models"
	"github.com/sguter90/airmaestro/pkg/puller/csvimport"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Pull readings from all enabled devices into the store",
	RunE:  runFetch,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge an exported device CSV file into the store",
	Long: `Import a CSV file exported from the monitor app for a single device.
This works without a device registry and therefore with the csv backend alone.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the whole reading store to a CSV file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)

	fetchCmd.Flags().StringSlice("device", nil, "only pull these device ids")

	importCmd.Flags().String("device", "", "device id the readings belong to")
	importCmd.Flags().String("mac", "", "MAC address of the device")
	importCmd.Flags().String("time-zone", "", "IANA time zone of the exported timestamps (default UTC)")
	importCmd.MarkFlagRequired("device")
}

func runFetch(cmd *cobra.Command, args []string) error {
	app := appFromCommand(cmd)
	ctx := cmd.Context()

	dm, err := app.DB()
	if err != nil {
		return err
	}

	devices, err := dm.ListDevices(ctx)
	if err != nil {
		return err
	}

	only, _ := cmd.Flags().GetStringSlice("device")
	devices = selectDevices(devices, only)
	if len(devices) == 0 {
		return fmt.Errorf("no devices to fetch")
	}

	incoming, fetchErr := app.FetchService().FetchAll(ctx, devices)
	if len(incoming) == 0 {
		if fetchErr != nil {
			return fetchErr
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No readings fetched")
		return nil
	}

	if err := refreshAndExport(cmd, app, incoming); err != nil {
		return err
	}

	return fetchErr
}

func runImport(cmd *cobra.Command, args []string) error {
	app := appFromCommand(cmd)

	deviceID, _ := cmd.Flags().GetString("device")
	mac, _ := cmd.Flags().GetString("mac")
	zone, _ := cmd.Flags().GetString("time-zone")

	device := models.Device{
		ID:     deviceID,
		MAC:    mac,
		Source: csvimport.ProviderType,
		Config: map[string]string{"path": args[0]},
	}
	if zone != "" {
		device.Config["time_zone"] = zone
	}

	incoming, err := app.FetchService().FetchDevice(cmd.Context(), device)
	if err != nil {
		return err
	}

	return refreshAndExport(cmd, app, incoming)
}

func runExport(cmd *cobra.Command, args []string) error {
	app := appFromCommand(cmd)

	path := app.cfg.Store.ExportPath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no export path given and STORE_EXPORT_PATH is not set")
	}

	ingestor, err := app.Ingestor()
	if err != nil {
		return err
	}

	readings, err := ingestor.Load(cmd.Context())
	if err != nil {
		return err
	}

	if err := ingest.ExportCSV(path, readings); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d readings to %s\n", len(readings), path)
	return nil
}

// refreshAndExport merges incoming into the store and writes the optional CSV export
func refreshAndExport(cmd *cobra.Command, app *App, incoming []models.Reading) error {
	ingestor, err := app.Ingestor()
	if err != nil {
		return err
	}

	start := time.Now()
	merged, err := ingestor.Refresh(cmd.Context(), incoming)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d readings, store now holds %d (%s)\n",
		len(incoming), len(merged), time.Since(start).Round(time.Millisecond))

	if app.cfg.Store.ExportPath != "" {
		if err := ingest.ExportCSV(app.cfg.Store.ExportPath, merged); err != nil {
			return err
		}
	}
	return nil
}

// selectDevices keeps the devices named in only; an empty filter keeps all
func selectDevices(devices []models.Device, only []string) []models.Device {
	if len(only) == 0 {
		return devices
	}

	wanted := make(map[string]bool, len(only))
	for _, id := range only {
		wanted[id] = true
	}

	selected := make([]models.Device, 0, len(only))
	for _, d := range devices {
		if wanted[d.ID] {
			selected = append(selected, d)
		}
	}
	return selected
}
