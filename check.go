package main

import (
	"fmt"

	"lula/profile"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate an indicator profile",
	Long: `check loads the indicator profile, reports every configuration fault it
finds and prints the compiled summary. The exit code is non-zero when the
profile is unusable.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := requireProfile("check"); err != nil {
		return err
	}

	prof, err := profile.NewProfileFile(profilePath)
	if err != nil {
		return err
	}

	fmt.Println(prof.String())
	fmt.Printf("profile [%s] is valid: %d supported objects\n",
		prof.Path(), len(prof.GetProfile().Objects))
	return nil
}
