package main

import (
	"fmt"
	"os"

	"lula/bundle"
	"lula/filter"
	"lula/profile"

	"github.com/spf13/cobra"
)

var (
	// extract flags
	outPath string
)

var extractCmd = &cobra.Command{
	Use:   "extract [bundle.json ...]",
	Short: "One-shot indicator extraction from bundle files",
	Long: `extract loads the indicator profile, reads every bundle file given as an
argument and writes the surviving entries as one indicator document to
stdout, or to the file named by --out.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the indicator document here instead of stdout")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if err := requireProfile("extract"); err != nil {
		return err
	}

	prof, err := profile.NewProfileFile(profilePath)
	if err != nil {
		return err
	}
	flt, err := filter.NewIndicatorFilter(prof.GetProfile())
	if err != nil {
		return err
	}

	candidates := make([]*bundle.ObjectHistoryEntry, 0)
	for _, path := range args {
		feed, err := bundle.ReadFile(path)
		if err != nil {
			return err
		}
		candidates = append(candidates, feed.Objects...)
	}
	indicators := flt.PruneObjects(candidates)

	document := bundle.NewIndicatorDocument("lula-"+version, prof.Path(), indicators)
	if outPath == "" {
		return document.Write(os.Stdout)
	}
	if err = document.WriteFile(outPath); err != nil {
		return err
	}
	fmt.Printf("%d candidates in, %d indicators out -> %s\n", len(candidates), len(indicators), outPath)
	return nil
}
