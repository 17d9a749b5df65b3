package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"spatialview/adapters/model"
	"spatialview/adapters/spatial"
	"spatialview/adapters/store"
	"spatialview/adapters/table"
	"spatialview/app"
	"spatialview/domain/view"
	"spatialview/internal"
	"spatialview/internal/config"
	"spatialview/internal/testkit"
	"spatialview/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "spatialview",
		Short: "Multi-view spatial relationship modeling",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newShowCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runFlags struct {
	label       string
	matrixFile  string
	coordsFile  string
	seed        int64
	folds       int
	modelKind   string
	bypassIntra bool
	workers     int
	targets     []string
	thresholds  []float64
	bandwidths  []float64
	kernel      string
	sentinel    string
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [label]",
		Short: "Run the multi-view analysis on a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.label = args[0]
			return executeRun(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.matrixFile, "matrix", "", "feature matrix file (csv or xlsx)")
	cmd.Flags().StringVar(&flags.coordsFile, "coords", "", "coordinate table file (csv or xlsx)")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "base random seed (default from RUN_SEED)")
	cmd.Flags().IntVar(&flags.folds, "folds", 0, "cross-validation folds (default from RUN_FOLDS)")
	cmd.Flags().StringVar(&flags.modelKind, "model", "", "model family: linear or ensemble")
	cmd.Flags().BoolVar(&flags.bypassIntra, "bypass-intra", false, "exclude intrinsic features from all models")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "concurrent training units (0 = one per CPU)")
	cmd.Flags().StringSliceVar(&flags.targets, "targets", nil, "restrict modeling to these features")
	cmd.Flags().Float64SliceVar(&flags.thresholds, "juxta", []float64{30}, "juxtacrine distance thresholds")
	cmd.Flags().Float64SliceVar(&flags.bandwidths, "para", []float64{60}, "paracrine kernel bandwidths")
	cmd.Flags().StringVar(&flags.kernel, "kernel", "gaussian", "paracrine kernel family: gaussian, exponential or linear")
	cmd.Flags().StringVar(&flags.sentinel, "sentinel", "nan", "isolated-cell fill: nan or zero")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [label]",
		Short: "Print the persisted tables of a previous run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			resultStore, cleanup, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			res, err := resultStore.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSummary(res.Label, res.ModelKind, res.Seed, len(res.Performance), len(res.Importance))
			for _, row := range res.Performance {
				fmt.Printf("  %-24s %-16s view_r2=%.4f gain_r2=%.4f contribution=%.1f%%\n",
					row.Target, row.View, row.ViewR2, row.GainR2, row.Contribution)
			}
			return nil
		},
	}
}

func newDemoCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "demo [label]",
		Short: "Run the analysis on a synthetic tissue with planted spatial structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.label = args[0]
			flags.thresholds = []float64{1.5}
			flags.bandwidths = []float64{3.0}
			flags.kernel = "gaussian"
			flags.sentinel = "nan"
			return executeDemo(cmd.Context(), flags)
		},
	}
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "base random seed (default from RUN_SEED)")
	cmd.Flags().IntVar(&flags.folds, "folds", 0, "cross-validation folds (default from RUN_FOLDS)")
	cmd.Flags().StringVar(&flags.modelKind, "model", "", "model family: linear or ensemble")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "concurrent training units (0 = one per CPU)")
	return cmd
}

func executeRun(ctx context.Context, flags *runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyDefaults(flags, cfg)

	matrixFile := flags.matrixFile
	if matrixFile == "" {
		matrixFile = cfg.Data.MatrixFile
	}
	coordsFile := flags.coordsFile
	if coordsFile == "" {
		coordsFile = cfg.Data.CoordsFile
	}
	if matrixFile == "" || coordsFile == "" {
		return fmt.Errorf("both --matrix and --coords are required (or MATRIX_FILE/COORDS_FILE)")
	}

	matrix, err := table.NewReader(matrixFile).ReadFeatureMatrix()
	if err != nil {
		return err
	}
	coords, err := table.NewReader(coordsFile).ReadCoordinates()
	if err != nil {
		return err
	}
	internal.DefaultLogger.Info("loaded %d cells, %d features from %s",
		matrix.Rows(), matrix.Cols(), matrixFile)

	return analyze(ctx, cfg, flags, matrix, coords)
}

func executeDemo(ctx context.Context, flags *runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyDefaults(flags, cfg)

	gen := testkit.NewTissueGenerator(testkit.DefaultTissueConfig())
	matrix, coords, err := gen.Generate()
	if err != nil {
		return err
	}
	internal.DefaultLogger.Info("generated synthetic tissue: %d cells, %d features",
		matrix.Rows(), matrix.Cols())

	return analyze(ctx, cfg, flags, matrix, coords)
}

func analyze(ctx context.Context, cfg *config.Config, flags *runFlags,
	matrix *view.FeatureMatrix, coords *view.Coordinates) error {

	sentinel, err := spatial.ParseSentinel(flags.sentinel)
	if err != nil {
		return err
	}
	kernel, err := spatial.ParseKernelFamily(flags.kernel)
	if err != nil {
		return err
	}
	modelKind, err := model.ParseKind(flags.modelKind)
	if err != nil {
		return err
	}

	builder := spatial.NewBuilder(coords).WithSentinel(sentinel)
	views := builder.InitialView(matrix)
	for _, threshold := range flags.thresholds {
		if views, err = builder.AddJuxta(views, threshold); err != nil {
			return err
		}
	}
	for _, bandwidth := range flags.bandwidths {
		if views, err = builder.AddPara(views, bandwidth, kernel); err != nil {
			return err
		}
	}
	internal.DefaultLogger.Info("views: %s", strings.Join(views.Names(), ", "))

	resultStore, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	service := app.NewRunService(resultStore, internal.DefaultLogger)
	res, err := service.Run(ctx, app.RunRequest{
		Label:       flags.label,
		Seed:        flags.seed,
		Folds:       flags.folds,
		Model:       modelKind,
		BypassIntra: flags.bypassIntra,
		Workers:     flags.workers,
		Targets:     flags.targets,
		Views:       views,
	})
	if err != nil {
		return err
	}
	printSummary(res.Label, res.ModelKind, res.Seed, len(res.Performance), len(res.Importance))
	return nil
}

func applyDefaults(flags *runFlags, cfg *config.Config) {
	if flags.seed == 0 {
		flags.seed = cfg.Run.Seed
	}
	if flags.folds == 0 {
		flags.folds = cfg.Run.Folds
	}
	if flags.modelKind == "" {
		flags.modelKind = cfg.Run.Model
	}
	if flags.workers == 0 {
		flags.workers = cfg.Run.Workers
	}
}

func openStore(ctx context.Context, cfg *config.Config) (ports.ResultStore, func(), error) {
	if cfg.Storage.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	}
	return store.NewFileStore(cfg.Storage.ResultsDir), func() {}, nil
}

func printSummary(label, modelKind string, seed int64, perfRows, impRows int) {
	fmt.Printf("run %s (model=%s seed=%d): %d performance rows, %d importance rows\n",
		label, modelKind, seed, perfRows, impRows)
}
