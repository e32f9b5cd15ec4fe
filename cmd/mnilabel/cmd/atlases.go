package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var atlasesCmd = &cobra.Command{
	Use:   "atlases",
	Short: "List the loaded atlases",
	Long:  "Lists every loaded atlas with its grid dimensions, region count and labeled voxel count.",
	Args:  cobra.NoArgs,
	RunE:  runAtlases,
}

func runAtlases(cmd *cobra.Command, args []string) error {
	service, _, err := buildService()
	if err != nil {
		return err
	}

	for _, name := range service.Store().Names() {
		a, err := service.Store().Atlas(name)
		if err != nil {
			return err
		}
		nx, ny, nz := a.Dims()
		fmt.Printf("%s\t%dx%dx%d voxels\t%d regions\t%d labeled voxels\n",
			name, nx, ny, nz, a.RegionCount(), len(a.LabeledVoxels()))
	}
	return nil
}
