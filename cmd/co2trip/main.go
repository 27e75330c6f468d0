package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NERVsystems/co2mcp/pkg/config"
	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/osm"
	"github.com/NERVsystems/co2mcp/pkg/report"
	"github.com/NERVsystems/co2mcp/pkg/schema"
	"github.com/NERVsystems/co2mcp/pkg/synth"
	"github.com/NERVsystems/co2mcp/pkg/trip"
	ver "github.com/NERVsystems/co2mcp/pkg/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	cfgPath string
	debug   bool
}

// load reads and validates the config, then installs the logger.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, _ := cfg.SlogLevel()
	if o.debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "co2trip",
		Short:         "Compare the CO2 footprint of travel options",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgPath, "config", "", "config file path (default ~/.co2trip/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug output")

	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newCompareCmd(opts))
	root.AddCommand(newPredictCmd(opts))
	root.AddCommand(newImportanceCmd(opts))
	root.AddCommand(newDatasetCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfgPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", path)
				return nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			cfg := &config.Config{}
			cfg.SetDefaults()
			if err := cfg.Write(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created", path)
			return nil
		},
	}
}

type vehicleFlags struct {
	vehicleType string
	age         int
	season      string
	traffic     int
}

func (v *vehicleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&v.vehicleType, "vehicle-type", "", "car class: "+strings.Join(schema.VehicleTypeNames(), ", "))
	cmd.Flags().IntVar(&v.age, "vehicle-age", 0, "vehicle age in years (0-20)")
	cmd.Flags().StringVar(&v.season, "season", "", "season: "+strings.Join(schema.SeasonNames(), ", "))
	cmd.Flags().IntVar(&v.traffic, "traffic", 0, "traffic level (1-10)")
}

var vehicleFlagNames = []string{"vehicle-type", "vehicle-age", "season", "traffic"}

// details returns nil when no vehicle flag was given and an error when
// only some were.
func (v *vehicleFlags) details(cmd *cobra.Command) (*trip.VehicleDetails, error) {
	set := 0
	for _, name := range vehicleFlagNames {
		if cmd.Flags().Changed(name) {
			set++
		}
	}
	if set == 0 {
		return nil, nil
	}
	if set != len(vehicleFlagNames) {
		return nil, fmt.Errorf("vehicle details need all of --vehicle-type, --vehicle-age, --season and --traffic")
	}
	vt, err := schema.ParseVehicleType(v.vehicleType)
	if err != nil {
		return nil, err
	}
	season, err := schema.ParseSeason(v.season)
	if err != nil {
		return nil, err
	}
	return &trip.VehicleDetails{Type: vt, AgeYears: v.age, Season: season, TrafficLevel: v.traffic}, nil
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	var (
		modes     []string
		travelers int
		vehicle   vehicleFlags
		asJSON    bool
		htmlPath  string
		pngPath   string
	)

	cmd := &cobra.Command{
		Use:   "compare FROM TO",
		Short: "Compare transport modes between two places or coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("modes") {
				modes = cfg.Trip.Modes
			}
			if !cmd.Flags().Changed("travelers") {
				travelers = cfg.Trip.Travelers
			}
			parsed, err := emissions.ParseModes(modes)
			if err != nil {
				return err
			}
			details, err := vehicle.details(cmd)
			if err != nil {
				return err
			}

			geocoder, err := osm.NewGeocoder(cfg.GeocoderOptions())
			if err != nil {
				return err
			}
			req := trip.Request{
				From:      args[0],
				To:        args[1],
				Modes:     parsed,
				Travelers: travelers,
				Vehicle:   details,
			}
			var model *estimator.Model
			if req.UsesModel() {
				if model, err = trainModel(cmd.Context(), cfg); err != nil {
					return err
				}
			}

			res, err := trip.NewPlanner(geocoder, model).Plan(cmd.Context(), req)
			if err != nil {
				return err
			}

			if htmlPath != "" {
				if err := writeFile(htmlPath, func(w io.Writer) error { return report.WriteHTML(w, res) }); err != nil {
					return err
				}
			}
			if pngPath != "" {
				if err := writeFile(pngPath, func(w io.Writer) error { return report.WritePNG(w, res) }); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}
			return report.WriteTrip(out, res)
		},
	}

	cmd.Flags().StringSliceVar(&modes, "modes", nil, "transport modes: "+strings.Join(emissions.ModeNames(), ", "))
	cmd.Flags().IntVar(&travelers, "travelers", 1, "number of travelers")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write an interactive chart to this HTML file")
	cmd.Flags().StringVar(&pngPath, "png", "", "write a bar chart to this PNG file")
	vehicle.register(cmd)
	return cmd
}

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var (
		distance  float64
		travelers int
		vehicle   vehicleFlags
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate a car trip with the trained model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("travelers") {
				travelers = cfg.Trip.Travelers
			}
			details, err := vehicle.details(cmd)
			if err != nil {
				return err
			}
			if details == nil {
				return fmt.Errorf("predict needs --vehicle-type, --vehicle-age, --season and --traffic")
			}
			t := schema.Trip{
				DistanceKm:      distance,
				VehicleAgeYears: details.AgeYears,
				VehicleType:     details.Type,
				Season:          details.Season,
				TrafficLevel:    details.TrafficLevel,
			}
			if err := t.Validate(); err != nil {
				return err
			}
			if travelers < 1 {
				return fmt.Errorf("%w: got %d", emissions.ErrInvalidTravelerCount, travelers)
			}

			model, err := trainModel(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			factor, err := emissions.EmissionFactor(emissions.Car)
			if err != nil {
				return err
			}
			c, err := model.Compare(t, travelers, distance*factor/float64(travelers))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), c)
			}
			return report.WriteComparison(cmd.OutOrStdout(), c)
		},
	}

	cmd.Flags().Float64Var(&distance, "distance", 0, "driven distance in km")
	cmd.Flags().IntVar(&travelers, "travelers", 1, "number of travelers")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	vehicle.register(cmd)
	_ = cmd.MarkFlagRequired("distance")
	return cmd
}

func newImportanceCmd(opts *rootOptions) *cobra.Command {
	var htmlPath, pngPath string

	cmd := &cobra.Command{
		Use:   "importance",
		Short: "Train the model and show feature importances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			model, err := trainModel(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			imps := model.FeatureImportances()
			if htmlPath != "" {
				if err := writeFile(htmlPath, func(w io.Writer) error { return report.WriteImportanceHTML(w, imps) }); err != nil {
					return err
				}
			}
			if pngPath != "" {
				if err := writeFile(pngPath, func(w io.Writer) error { return report.WriteImportancePNG(w, imps) }); err != nil {
					return err
				}
			}
			return report.WriteImportances(cmd.OutOrStdout(), imps)
		},
	}

	cmd.Flags().StringVar(&htmlPath, "html", "", "write an interactive chart to this HTML file")
	cmd.Flags().StringVar(&pngPath, "png", "", "write a bar chart to this PNG file")
	return cmd
}

func newDatasetCmd(opts *rootOptions) *cobra.Command {
	var (
		outPath string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Generate the synthetic training set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			table, err := synth.Generate(cfg.SynthConfig())
			if err != nil {
				return err
			}
			if summary {
				return report.WriteSummary(cmd.OutOrStdout(), table.Summary())
			}
			if outPath == "" || outPath == "-" {
				return table.WriteCSV(cmd.OutOrStdout())
			}
			if err := writeFile(outPath, table.WriteCSV); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d samples to %s\n", table.Len(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "CSV output path, - for stdout")
	cmd.Flags().BoolVar(&summary, "summary", false, "print column statistics instead of CSV")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), ver.String())
			return nil
		},
	}
}

// trainModel is a variable so tests can observe when training happens.
var trainModel = func(ctx context.Context, cfg *config.Config) (*estimator.Model, error) {
	table, err := synth.Generate(cfg.SynthConfig())
	if err != nil {
		return nil, err
	}
	return estimator.Train(ctx, table, cfg.EstimatorConfig())
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
