package main

import (
	"fmt"
	"os"

	lerror "lula/error"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

const logo = "       ___\n" +
	"     .'   '.      ,\"\"\"\"\"\"\"\"\"\"\"\".\n" +
	"    /  o _ o \\    | Lula DEPTH! |\n" +
	"    |  ( _ )  |  _;.............'\n" +
	"    '.       .' -'\n" +
	"    /|/|/|\\|\\|\\\n" +
	"   ( | | | | | )\n" +
	"    \\| | | | |/\n" +
	"     ' ' ' ' '\n" +
	"[Lula_" + version + " - ENKI WHITEHAT 2025]\n\n"

var (
	// Global flags
	profilePath string
)

var rootCmd = &cobra.Command{
	Use:   "lula",
	Short: "Extract detection indicators from observed-object bundles",
	Long: logo + `lula filters observed-object bundles down to the entries usable as
detection indicators. Every candidate passes three checks driven by an
indicator profile: contraindication detection over its action history,
required property completeness, and schema-driven property pruning.

  extract   one-shot extraction from bundle files
  serve     watch an inbox directory and export indicators continuously
  check     validate an indicator profile`,
	Version:      version,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "indicator profile file (yaml)")
}

func requireProfile(command string) error {
	if profilePath == "" {
		return lerror.LulaGeneralError{
			Code:   lerror.InvalidArgumentError,
			Origin: fmt.Errorf("--profile is not set"),
			Msg:    fmt.Sprintf("error while run %s", command),
		}
	}
	return nil
}
