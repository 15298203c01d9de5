package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stagewise/internal/config"
	"stagewise/internal/errors"
	"stagewise/internal/gitexec"
)

var stageDryRun bool

var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Stage the first commit of the plan",
	Long: `Plan the working-tree changes and stage exactly the files of the first
commit in order. Everything else is unstaged. Commit, then run stage again
for the next one.

Examples:
  stagewise stage
  stagewise stage --dry-run
  stagewise stage --op merge:1,2`,
	Args: cobra.NoArgs,
	RunE: runStage,
}

func init() {
	addPlanFlags(stageCmd)
	stageCmd.Flags().BoolVar(&stageDryRun, "dry-run", false, "Show what would be staged without touching the index")
	rootCmd.AddCommand(stageCmd)
}

func runStage(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(repoFlag)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// stage always works on the live working tree
	planDiffFile = ""
	plan, err := buildPlan(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	if len(plan.Commits) == 0 {
		return errors.NewEmptyInputError()
	}
	first := plan.Commits[0]

	out := cmd.OutOrStdout()
	if stageDryRun {
		fmt.Fprintf(out, "Would stage %d files for: %s\n", first.Boundary.FileCount(), first.Message.Header())
		for _, p := range first.Boundary.Paths() {
			fmt.Fprintf(out, "  %s\n", p)
		}
		return nil
	}

	repo, err := gitexec.Open(ctx, repoFlag, logger)
	if err != nil {
		return err
	}
	staged, err := repo.StageBoundary(ctx, first.Boundary)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Staged %d files for: %s\n", len(staged), first.Message.Header())
	for _, p := range staged {
		fmt.Fprintf(out, "  %s\n", p)
	}
	if remaining := len(plan.Commits) - 1; remaining > 0 {
		fmt.Fprintf(out, "%d more commits planned. Commit, then run 'stagewise stage' again.\n", remaining)
	}
	return nil
}
