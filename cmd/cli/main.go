package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sguter90/airmaestro/pkg/config"
	"github.com/sguter90/airmaestro/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "airmaestro",
	Short: "AirMaestro - Air Quality Monitor Comparison",
	Long: `AirMaestro collects readings from several air quality monitors into one
deduplicated store and reports how far each monitor deviates from a reference device.`,
	SilenceUsage: true,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	app := NewApp(cfg, logger.NewLogger(cfg.Logging))

	ctx := context.WithValue(context.Background(), appContextKey, app)
	rootCmd.SetContext(ctx)

	err = rootCmd.ExecuteContext(ctx)
	app.Close()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
