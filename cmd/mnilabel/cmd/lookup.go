package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mnilabel/pkg/locate"
)

var (
	lookupAtlases []string
	lookupNoNear  bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <x> <y> <z>",
	Short: "Resolve one MNI coordinate to region labels",
	Long: "Resolves a single MNI coordinate (mm) against the requested atlases and prints one <atlas>.distance / <atlas>.label line per entry. " +
		"Coordinates may be fractional and negative; any argument that parses as a number is taken as a coordinate, so flags and negative coordinates can be mixed freely.",
	Example: "  mnilabel lookup 26 0 0\n" +
		"  mnilabel lookup -43 -62 18 --atlas aal\n" +
		"  mnilabel lookup 0.2 -0.1 0.4 --no-nearest",
	// Flag parsing is done in runLookup so negative coordinates are not
	// mistaken for flags.
	DisableFlagParsing: true,
	Args:               cobra.ArbitraryArgs,
	RunE:               runLookup,
}

// splitCoordArgs separates coordinate arguments from flag arguments.
// Anything that parses as a number is a coordinate; everything else
// belongs to the flag set, together with the value of any flag that
// takes one. A "--" ends flag handling as usual.
func splitCoordArgs(cmd *cobra.Command, args []string) (flagArgs, coordArgs []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			coordArgs = append(coordArgs, args[i+1:]...)
			return flagArgs, coordArgs
		}
		if _, err := strconv.ParseFloat(a, 64); err == nil {
			coordArgs = append(coordArgs, a)
			continue
		}
		flagArgs = append(flagArgs, a)
		if flagNeedsValue(cmd, a) && i+1 < len(args) {
			i++
			flagArgs = append(flagArgs, args[i])
		}
	}
	return flagArgs, coordArgs
}

// flagNeedsValue reports whether arg names a non-bool flag given in
// "--flag value" form, whose value arrives as the next argument.
func flagNeedsValue(cmd *cobra.Command, arg string) bool {
	if !strings.HasPrefix(arg, "-") || strings.Contains(arg, "=") {
		return false
	}
	var f *pflag.Flag
	if strings.HasPrefix(arg, "--") {
		name := strings.TrimPrefix(arg, "--")
		f = cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.InheritedFlags().Lookup(name)
		}
	} else if len(arg) == 2 {
		f = cmd.Flags().ShorthandLookup(arg[1:])
	}
	return f != nil && f.Value.Type() != "bool"
}

func runLookup(cmd *cobra.Command, args []string) error {
	flagArgs, coordArgs := splitCoordArgs(cmd, args)
	// ParseFlags is a no-op while DisableFlagParsing is set, so lift it
	// for the duration of this one call.
	cmd.DisableFlagParsing = false
	err := cmd.ParseFlags(flagArgs)
	cmd.DisableFlagParsing = true
	if err != nil {
		return err
	}
	if help := cmd.Flags().Lookup("help"); help != nil && help.Value.String() == "true" {
		return cmd.Help()
	}

	// Non-numeric leftovers surface here as excess arguments.
	coordArgs = append(coordArgs, cmd.Flags().Args()...)
	if len(coordArgs) != 3 {
		return fmt.Errorf("expected 3 coordinates, got %d: %s", len(coordArgs), strings.Join(coordArgs, " "))
	}

	coords := make([]float64, 3)
	for i, arg := range coordArgs {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q: %w", arg, err)
		}
		coords[i] = v
	}

	service, cfg, err := buildService()
	if err != nil {
		return err
	}

	params := locate.DefaultParams()
	params.SearchNearest = cfg.Search.Nearest
	if cmd.Flags().Changed("no-nearest") {
		params.SearchNearest = !lookupNoNear
	}
	params.Atlases = lookupAtlases

	results, err := service.Locate(coords[0], coords[1], coords[2], params)
	if err != nil {
		return err
	}
	for _, e := range results.Flatten() {
		fmt.Printf("%s\t%s\n", e.Key, e.Value)
	}
	return nil
}

func init() {
	lookupCmd.Flags().StringSliceVar(&lookupAtlases, "atlas", nil, "Atlas to query (repeatable; default: all loaded atlases)")
	lookupCmd.Flags().BoolVar(&lookupNoNear, "no-nearest", false, "Disable the nearest-neighbor fallback (--no-nearest=false re-enables it over the config)")
}
