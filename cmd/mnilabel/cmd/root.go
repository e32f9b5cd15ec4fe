package cmd

import (
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"mnilabel/assets"
	"mnilabel/pkg/atlas"
	"mnilabel/pkg/config"
	"mnilabel/pkg/locate"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mnilabel",
	Short: "mnilabel resolves MNI coordinates to anatomical region labels",
	Long:  "Resolves MNI brain-scan coordinates to anatomical region labels using bundled reference atlases, with nearest-neighbor fallback for unlabeled coordinates.",
}

// buildService loads the configured atlases and wires the locate
// service. Bundled atlases are used unless the config points at a data
// directory.
func buildService() (*locate.Service, *config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	var fsys fs.FS = assets.FS
	if cfg.Atlases.Dir != "" {
		fsys = os.DirFS(cfg.Atlases.Dir)
	}

	store, err := atlas.Open(fsys, cfg.Atlases.Default...)
	if err != nil {
		return nil, nil, err
	}
	return locate.NewService(store), cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mnilabel.yaml", "Path to the YAML config file")
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(atlasesCmd)
	rootCmd.AddCommand(importCmd)
}
