// mnilabel resolves MNI brain-scan coordinates to anatomical region
// labels using bundled reference atlases.
package main

import (
	"os"

	"mnilabel/cmd/mnilabel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
