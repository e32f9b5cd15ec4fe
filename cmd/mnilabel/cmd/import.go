package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mnilabel/pkg/atlas"
)

var importOut string

var importCmd = &cobra.Command{
	Use:   "import <image.nii[.gz]> <regions.tsv> <name>",
	Short: "Convert a NIfTI label image into the bundled atlas format",
	Long:  "Reads a NIfTI-1 integer label image and its index<TAB>name region table, validates their consistency, and writes <name>.atl.gz and <name>.tsv into the output directory so the atlas can be loaded via the config's atlas directory.",
	Args:  cobra.ExactArgs(3),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	imagePath, tablePath, name := args[0], args[1], args[2]

	imageFile, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer imageFile.Close()

	nx, ny, nz, affine, labels, err := atlas.ReadNIfTILabels(imageFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", imagePath, err)
	}

	tableFile, err := os.Open(tablePath)
	if err != nil {
		return fmt.Errorf("failed to open region table: %w", err)
	}
	defer tableFile.Close()

	regions, err := atlas.ReadRegionTable(tableFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", tablePath, err)
	}

	// Assemble once to validate dimensions, affine and region table
	// before anything is written.
	a, err := atlas.New(name, nx, ny, nz, affine, labels, regions)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(importOut, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	volPath := filepath.Join(importOut, name+".atl.gz")
	volFile, err := os.Create(volPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", volPath, err)
	}
	defer volFile.Close()
	if err := atlas.WriteVolume(volFile, nx, ny, nz, affine, labels); err != nil {
		return fmt.Errorf("failed to write %s: %w", volPath, err)
	}

	tabPath := filepath.Join(importOut, name+".tsv")
	tabFile, err := os.Create(tabPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tabPath, err)
	}
	defer tabFile.Close()
	if err := atlas.WriteRegionTable(tabFile, regions); err != nil {
		return fmt.Errorf("failed to write %s: %w", tabPath, err)
	}

	fmt.Printf("Imported atlas %q: %dx%dx%d voxels, %d regions, %d labeled voxels\n",
		name, nx, ny, nz, a.RegionCount(), len(a.LabeledVoxels()))
	fmt.Printf("Wrote %s and %s\n", volPath, tabPath)
	return nil
}

func init() {
	importCmd.Flags().StringVar(&importOut, "out", ".", "Output directory for the converted atlas files")
}
