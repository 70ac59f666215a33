package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sguter90/airmaestro/pkg/api"
	"github.com/sguter90/airmaestro/pkg/report"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare every device against the reference device",
	Long: `Align the stored readings of every non-reference device with the mean of the
nearest reference readings and write the differences as a flat table.`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	f := compareCmd.Flags()
	f.StringP("reference", "r", "", "reference device id (default REFERENCE_DEVICE)")
	f.IntP("window", "w", 0, "number of nearest reference readings to average (default WINDOW_SIZE)")
	f.String("start", "", "ignore non-reference readings before this time (default START_TIME)")
	f.String("variables", "", "comma-separated variables to compare (default all)")
	f.StringSlice("device", nil, "restrict comparison to these device ids")
	f.StringP("output", "o", "", "output file, - for stdout (default DIFFERENCE_OUTPUT)")
	f.String("format", "csv", "output format: csv or json")
	f.Bool("save", false, "store the report in the database")
	f.String("server", "", "run the comparison on this AirMaestro server instead of locally")
	f.String("token", "", "API token for --server (default AIRMAESTRO_TOKEN)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	app := appFromCommand(cmd)
	f := cmd.Flags()

	reference, _ := f.GetString("reference")
	window, _ := f.GetInt("window")
	start, _ := f.GetString("start")
	variables, _ := f.GetString("variables")
	devices, _ := f.GetStringSlice("device")
	output, _ := f.GetString("output")
	format, _ := f.GetString("format")
	save, _ := f.GetBool("save")

	if format != "csv" && format != "json" {
		return fmt.Errorf("invalid format: %q (valid: csv, json)", format)
	}
	if output == "" {
		output = app.cfg.Comparison.OutputPath
	}

	req := api.CompareRequest{
		Reference:  reference,
		WindowSize: window,
		Start:      start,
		Variables:  variables,
		Devices:    devices,
		Save:       save,
	}

	if server, _ := f.GetString("server"); server != "" {
		table, err := newAPIClient(cmd, server).Compare(cmd.Context(), req)
		if err != nil {
			return err
		}
		return finishCompare(cmd, output, format, table)
	}

	req = withComparisonDefaults(req, app.cfg.Comparison)

	ingestor, err := app.Ingestor()
	if err != nil {
		return err
	}

	diffReport, table, err := runComparison(cmd.Context(), ingestor, req, app.log, app.metrics)
	if err != nil {
		return err
	}

	if req.Save {
		dm, err := app.DB()
		if err != nil {
			return err
		}
		if err := dm.SaveReport(cmd.Context(), diffReport); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved report %s\n", diffReport.ID)
	}

	return finishCompare(cmd, output, format, table)
}

func finishCompare(cmd *cobra.Command, output, format string, table *report.Table) error {
	if err := writeTable(output, format, table); err != nil {
		return err
	}

	if output != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", table.Len(), output)
	}
	return nil
}

// writeTable writes table to path, or stdout for "-"
func writeTable(path, format string, table *report.Table) error {
	write := table.WriteCSV
	if format == "json" {
		write = table.WriteJSON
	}

	if path == "-" {
		return write(os.Stdout)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := write(io.Writer(file)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
