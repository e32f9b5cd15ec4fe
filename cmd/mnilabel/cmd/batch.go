package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"mnilabel/internal/models"
	"mnilabel/pkg/locate"
)

var (
	batchIn      string
	batchOut     string
	batchAtlases []string
	batchNoNear  bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Resolve a CSV of MNI coordinates",
	Long:  "Reads x,y,z rows from a CSV file (\"-\" for stdin) and writes one result row per coordinate with <atlas>.distance and <atlas>.label columns. The distance column is empty for no-match results.",
	Args:  cobra.NoArgs,
	RunE:  runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	service, cfg, err := buildService()
	if err != nil {
		return err
	}

	params := locate.DefaultParams()
	params.SearchNearest = cfg.Search.Nearest
	if cmd.Flags().Changed("no-nearest") {
		params.SearchNearest = !batchNoNear
	}
	params.Atlases = batchAtlases
	names := params.Atlases
	if len(names) == 0 {
		names = service.Store().Names()
	}
	// Bad atlas names fail here, before any input is consumed.
	if err := service.Store().Validate(names); err != nil {
		return err
	}

	in := os.Stdin
	if batchIn != "-" {
		f, err := os.Open(batchIn)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	out := os.Stdout
	if batchOut != "-" {
		f, err := os.Create(batchOut)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	writer := csv.NewWriter(out)
	defer writer.Flush()

	header := []string{"x", "y", "z"}
	for _, name := range names {
		header = append(header, name+".distance", name+".label")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		line++
		if len(record) < 3 {
			return fmt.Errorf("row %d: expected at least 3 fields, got %d", line, len(record))
		}

		coords := make([]float64, 3)
		skip := false
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				if line == 1 {
					// Tolerate a header row in the input.
					skip = true
					break
				}
				return fmt.Errorf("row %d: invalid coordinate %q", line, record[i])
			}
			coords[i] = v
		}
		if skip {
			continue
		}

		results, err := service.Locate(coords[0], coords[1], coords[2], params)
		if err != nil {
			return err
		}

		row := record[:3]
		for _, ar := range results {
			res := ar.Resolution
			if res.Matched() {
				row = append(row, strconv.FormatFloat(res.Distance, 'g', -1, 64), res.Label)
			} else {
				row = append(row, "", models.NoLabel)
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func init() {
	batchCmd.Flags().StringVar(&batchIn, "in", "-", "Input CSV path (\"-\" for stdin)")
	batchCmd.Flags().StringVar(&batchOut, "out", "-", "Output CSV path (\"-\" for stdout)")
	batchCmd.Flags().StringSliceVar(&batchAtlases, "atlas", nil, "Atlas to query (repeatable; default: all loaded atlases)")
	batchCmd.Flags().BoolVar(&batchNoNear, "no-nearest", false, "Disable the nearest-neighbor fallback (--no-nearest=false re-enables it over the config)")
}
