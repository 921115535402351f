// Package cli implements the NERVE command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerve-engine/nerve/internal/bootstrap"
	"github.com/nerve-engine/nerve/internal/catalog"
	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/logging"
	"github.com/nerve-engine/nerve/internal/web"
)

// CLI encapsulates the command-line interface.
type CLI struct {
	rootCmd *cobra.Command
	logger  *logging.Logger
}

// New creates a new CLI instance.
func New() *CLI {
	logger, _ := logging.New(logging.Config{
		Level:       logging.INFO,
		LogDir:      "logs",
		EnableFile:  true,
		EnableColor: true,
		Component:   "cli",
	})
	c := &CLI{logger: logger}
	c.buildCommands()
	return c
}

// Execute runs the CLI.
func (c *CLI) Execute() error {
	return c.rootCmd.Execute()
}

func (c *CLI) buildCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "nerve",
		Short: "NERVE — GPU spot-market placement engine",
		Long: `
  _   _ _____ ______     _______
 | \ | | ____|  _ \ \   / / ____|
 |  \| |  _| | |_) \ \ / /|  _|
 | |\  | |___|  _ < \ V / | |___
 |_| \_|_____|_| \_\ \_/  |_____|

  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
  Network-aware, Emission-Resilient, Value-optimized Engine
  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

  Picks the cheapest, greenest GPU spot placement across regions and
  availability zones, simulates spot interruptions, and recommends
  time-shifted start windows — using live Azure pricing, weather, and
  grid-carbon data.`,
		Version: "1.0.0",
	}

	c.rootCmd.AddCommand(c.simulateCmd())
	c.rootCmd.AddCommand(c.regionCmd())
	c.rootCmd.AddCommand(c.timeshiftCmd())
	c.rootCmd.AddCommand(c.checkpointCmd())
	c.rootCmd.AddCommand(c.statsCmd())
	c.rootCmd.AddCommand(c.serveCmd())
}

// withEngine runs one scrape cycle against a freshly built engine and
// passes it to fn. One-shot CLI commands need a live snapshot before
// they can answer, unlike the long-running server which relies on the
// scraper loop's background cadence.
func (c *CLI) withEngine(ctx context.Context, fn func(*bootstrap.Engine) error) error {
	eng, err := bootstrap.Build(config.Get())
	if err != nil {
		return fmt.Errorf("bootstrap engine: %w", err)
	}
	defer eng.Stats.Close()

	c.logger.Info("running initial scrape cycle")
	eng.Loop.RunOnce(ctx)

	return fn(eng)
}

func (c *CLI) simulateCmd() *cobra.Command {
	var (
		jobType        string
		modelName      string
		gpuHours       float64
		deadlineHours  float64
		minMemoryGB    int
		framework      string
		checkpointMins int
		region         string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Find the best GPU spot placement for a job",
		Long: `Runs the NERVE scorer across all tracked regions and availability
zones and returns the cheapest, greenest placement that fits the job's
deadline and memory requirements, with a fallback AZ and a time-shift
recommendation.

Examples:
  nerve simulate --gpu-hours 8 --deadline-hours 24 --min-memory 40
  nerve simulate --job-type llm_inference --region francecentral`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			req := domain.SimulateRequest{
				JobType:               domain.JobType(jobType),
				ModelName:             modelName,
				EstimatedGPUHours:     gpuHours,
				Deadline:              time.Now().UTC().Add(time.Duration(deadlineHours * float64(time.Hour))),
				MinGPUMemoryGB:        minMemoryGB,
				Framework:             framework,
				CheckpointIntervalMin: checkpointMins,
				PreferredRegion:       region,
			}

			return c.withEngine(ctx, func(eng *bootstrap.Engine) error {
				resp, err := eng.Controller.Simulate(req)
				if err != nil {
					return err
				}
				return printJSON(resp)
			})
		},
	}

	cmd.Flags().StringVar(&jobType, "job-type", string(domain.JobLLMFineTuning), "llm_fine_tuning, llm_inference, rendering_3d, data_etl")
	cmd.Flags().StringVar(&modelName, "model", "", "model name, for logging only")
	cmd.Flags().Float64Var(&gpuHours, "gpu-hours", 4.0, "estimated GPU-hours the job needs")
	cmd.Flags().Float64Var(&deadlineHours, "deadline-hours", 24.0, "hours from now the job must complete by")
	cmd.Flags().IntVar(&minMemoryGB, "min-memory", 16, "minimum GPU memory required, in GB")
	cmd.Flags().StringVar(&framework, "framework", "pytorch", "training framework, for logging only")
	cmd.Flags().IntVar(&checkpointMins, "checkpoint-interval", 15, "recommended checkpoint interval, in minutes")
	cmd.Flags().StringVar(&region, "region", "", "restrict to one region (default: search all)")

	return cmd
}

func (c *CLI) regionCmd() *cobra.Command {
	var regionID string

	cmd := &cobra.Command{
		Use:   "region",
		Short: "Show the current price, weather, and carbon snapshot for a region",
		Long: `Displays every availability zone's GPU spot prices alongside the
region's current weather and grid-carbon readings.

Examples:
  nerve region --region francecentral`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if regionID == "" {
				regionID = catalog.DefaultRegionID
			}
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			return c.withEngine(ctx, func(eng *bootstrap.Engine) error {
				info, err := eng.Controller.GetRegion(regionID)
				if err != nil {
					return err
				}
				return c.printRegion(info)
			})
		},
	}

	cmd.Flags().StringVar(&regionID, "region", "", "region id (default: "+catalog.DefaultRegionID+")")
	return cmd
}

func (c *CLI) printRegion(info domain.RegionInfo) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Region\t%s (%s)\n", info.RegionName, info.Location)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "AZ\tSKU\tGPU\tSpot $/hr\tOn-Demand $/hr\tSavings\tAvailability")
	for _, az := range info.AvailabilityZones {
		for _, gpu := range az.GPUInstances {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\t%.1f%%\t%s\n",
				az.AZID, gpu.SKU, gpu.GPUName, gpu.SpotPriceUSDHr, gpu.OnDemandPriceUSDHr, gpu.SavingsPct, gpu.Availability)
		}
		fmt.Fprintf(w, "%s\tcarbon: %.0f gCO2/kWh (%s)\ttemp: %.1f°C\twind: %.1f km/h\t\t\t\n",
			az.AZID, az.CarbonIntensityGCO2KWh, az.CarbonIndex, az.TemperatureC, az.WindKmh)
	}
	return w.Flush()
}

func (c *CLI) timeshiftCmd() *cobra.Command {
	var (
		jobType       string
		gpuHours      float64
		deadlineHours float64
		minMemoryGB   int
		region        string
	)

	cmd := &cobra.Command{
		Use:   "timeshift",
		Short: "Compute the cheapest 24h window to start a flexible job",
		Long: `Finds the cheapest and greenest window before a deadline to start a
job that does not need to run immediately.

Examples:
  nerve timeshift --gpu-hours 6 --deadline-hours 18`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			req := domain.TimeShiftRequest{
				JobType:           domain.JobType(jobType),
				EstimatedGPUHours: gpuHours,
				Deadline:          time.Now().UTC().Add(time.Duration(deadlineHours * float64(time.Hour))),
				MinGPUMemoryGB:    minMemoryGB,
				PreferredRegion:   region,
				Flexible:          true,
			}

			return c.withEngine(ctx, func(eng *bootstrap.Engine) error {
				return printJSON(eng.Controller.ComputeTimeshift(req))
			})
		},
	}

	cmd.Flags().StringVar(&jobType, "job-type", string(domain.JobLLMFineTuning), "llm_fine_tuning, llm_inference, rendering_3d, data_etl")
	cmd.Flags().Float64Var(&gpuHours, "gpu-hours", 4.0, "estimated GPU-hours the job needs")
	cmd.Flags().Float64Var(&deadlineHours, "deadline-hours", 24.0, "hours from now the job must complete by")
	cmd.Flags().IntVar(&minMemoryGB, "min-memory", 16, "minimum GPU memory required, in GB")
	cmd.Flags().StringVar(&region, "region", "", "restrict to one region (default: francecentral)")

	return cmd
}

func (c *CLI) checkpointCmd() *cobra.Command {
	var (
		jobID         string
		currentRegion string
		currentAZ     string
		currentSKU    string
		epochPct      float64
		modelSizeGB   float64
	)

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Simulate a spot interruption and migration",
		Long: `Simulates the full Smart Checkpointing protocol: checkpoint save,
node cordon, migration to a neighbor availability zone, and resume —
with the fixed timeline NERVE guarantees for zero progress loss.

Examples:
  nerve checkpoint --job-id job-123 --current-az fr-central-1 --epoch-progress 42.5 --model-size 24`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			req := domain.CheckpointSimulateRequest{
				JobID:            jobID,
				CurrentRegion:    currentRegion,
				CurrentAZ:        currentAZ,
				CurrentSKU:       currentSKU,
				EpochProgressPct: epochPct,
				ModelSizeGB:      modelSizeGB,
			}

			return c.withEngine(ctx, func(eng *bootstrap.Engine) error {
				event, err := eng.Controller.SimulateInterruption(req)
				if err != nil {
					return err
				}
				return printJSON(event)
			})
		},
	}

	cmd.Flags().StringVar(&jobID, "job-id", "job-cli", "job identifier")
	cmd.Flags().StringVar(&currentRegion, "current-region", catalog.DefaultRegionID, "region the job is currently running in")
	cmd.Flags().StringVar(&currentAZ, "current-az", "", "availability zone the job is currently running in (required)")
	cmd.Flags().StringVar(&currentSKU, "current-sku", "", "GPU SKU the job is currently running on")
	cmd.Flags().Float64Var(&epochPct, "epoch-progress", 0, "training progress at time of interruption, percent")
	cmd.Flags().Float64Var(&modelSizeGB, "model-size", 10, "model size in GB, used to size the checkpoint upload")
	cmd.MarkFlagRequired("current-az")

	return cmd
}

func (c *CLI) statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the running dashboard statistics",
		Long:  `Displays the persisted tally of jobs placed, savings, and checkpoint/eviction counts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := bootstrap.Build(config.Get())
			if err != nil {
				return err
			}
			defer eng.Stats.Close()
			return printJSON(eng.Controller.DashboardStats())
		},
	}
	return cmd
}

func (c *CLI) serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the NERVE HTTP API and background scrape loop",
		Long: `Starts the scraper loop (60s cadence against live Azure/weather/carbon
APIs) and serves the seven NERVE operations over HTTP.

Examples:
  nerve serve --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to serve the HTTP API on")
	return cmd
}

func (c *CLI) runServe(port int) error {
	fmt.Println("Starting NERVE engine...")
	fmt.Printf("  API will listen on http://localhost:%d\n", port)
	fmt.Println("  Press Ctrl+C to stop")

	eng, err := bootstrap.Build(config.Get())
	if err != nil {
		return err
	}
	defer eng.Stats.Close()

	ctx := context.Background()
	if err := eng.Loop.Start(ctx); err != nil {
		return fmt.Errorf("start scrape loop: %w", err)
	}
	defer eng.Loop.Stop()

	server := web.NewServer(port, eng.Controller, eng.Registry)
	return server.Start()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
