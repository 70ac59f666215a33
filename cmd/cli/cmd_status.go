package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sguter90/airmaestro/pkg/api"
	"github.com/sguter90/airmaestro/pkg/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show health and devices of a running AirMaestro server",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("server", "http://localhost:8059", "AirMaestro server URL")
	statusCmd.Flags().String("token", "", "API token (default AIRMAESTRO_TOKEN)")
	statusCmd.Flags().Bool("fetch", false, "trigger a fetch of all devices first (requires a token)")
}

// newAPIClient builds a client from the --token flag or AIRMAESTRO_TOKEN
func newAPIClient(cmd *cobra.Command, server string) *api.Client {
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = config.GetEnv("AIRMAESTRO_TOKEN", "")
	}
	return api.NewClient(server, api.WithToken(token), api.WithTimeout(2*time.Minute))
}

func runStatus(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	fetch, _ := cmd.Flags().GetBool("fetch")
	client := newAPIClient(cmd, server)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	health, err := client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Server:   %s\n", server)
	fmt.Fprintf(out, "Status:   %s\n", health.Status)
	if health.Database != "" {
		fmt.Fprintf(out, "Database: %s\n", health.Database)
	}

	if fetch {
		resp, err := client.Fetch(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Fetched:  store holds %d readings\n", resp.StoredReadings)
	}

	devices, err := client.Devices(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tSOURCE\tREADINGS\tFIRST\tLAST")
	for _, d := range devices {
		first, last := "-", "-"
		if d.FirstReading != nil {
			first = d.FirstReading.Format(time.RFC3339)
		}
		if d.LastReading != nil {
			last = d.LastReading.Format(time.RFC3339)
		}
		source := d.Device.Source
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", d.Device.ID, source, d.TotalReadings, first, last)
	}
	return w.Flush()
}
