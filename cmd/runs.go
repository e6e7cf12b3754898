package cmd

import (
	"fmt"
	"math"
	"text/tabwriter"

	"github.com/LdDl/ptrack-go/export"
	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	runsDBPath     string
	runsCSVPath    string
	runsPlotPath   string
	runsPlotWidth  int
	runsPlotHeight int

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "Inspect pipeline runs stored in a SQLite database",
		Long:  longRuns,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		RunE:  runRunsList,
	}

	runsExportCmd = &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export trajectory table of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsExport,
	}
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsExportCmd)

	runsCmd.PersistentFlags().StringVar(&runsDBPath, "db", "ptrack.db", "SQLite database with runs")
	runsExportCmd.Flags().StringVar(&runsCSVPath, "csv", "", "write trajectory table to this CSV file (stdout when empty)")
	runsExportCmd.Flags().StringVar(&runsPlotPath, "plot", "", "draw trajectories into this image file")
	runsExportCmd.Flags().IntVar(&runsPlotWidth, "width", 0, "field of view width for --plot, pixels")
	runsExportCmd.Flags().IntVar(&runsPlotHeight, "height", 0, "field of view height for --plot, pixels")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := export.OpenStore(runsDBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	runs, err := store.ListRuns(cmd.Context())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tTRAJECTORIES\tROWS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"), run.Trajectories, run.Rows)
	}
	return tw.Flush()
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	runID, err := uuid.Parse(args[0])
	if err != nil {
		return errors.Wrapf(err, "bad run id %q", args[0])
	}
	store, err := export.OpenStore(runsDBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	run, err := store.LoadRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	newLogger().Info("run loaded", "run", run.ID, "rows", len(run.Rows), "matching", run.Config.Matching)

	if runsPlotPath != "" {
		width, height := runsPlotWidth, runsPlotHeight
		if width <= 0 || height <= 0 {
			width, height = rowsExtent(run.Rows)
		}
		if err := export.PlotTrajectories(runsPlotPath, run.Rows, width, height); err != nil {
			return err
		}
	}
	if runsCSVPath == "" {
		return export.WriteCSV(cmd.OutOrStdout(), run.Rows)
	}
	return writeCSVFile(runsCSVPath, run.Rows)
}

// rowsExtent guesses field of view from the farthest position in the table
func rowsExtent(rows []ptrack.Row) (int, int) {
	width, height := 1, 1
	for _, row := range rows {
		width = max(width, int(math.Ceil(row.X))+1)
		height = max(height, int(math.Ceil(row.Y))+1)
	}
	return width, height
}

var longRuns = `
Every "track --db" invocation stores its configuration and trajectory table
under a run ID. These commands list stored runs and export them again.

Examples:
  ptrack runs list --db runs.db
  ptrack runs export 0b7c2d0e-4a55-4e43-9d2e-1f1a8f6c9d3b --db runs.db --csv tracks.csv
`
