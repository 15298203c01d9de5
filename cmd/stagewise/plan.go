package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stagewise/internal/changes"
	"stagewise/internal/config"
	"stagewise/internal/engine"
	"stagewise/internal/gitexec"
	"stagewise/internal/mutation"
	"stagewise/internal/output"
	"stagewise/internal/staging"
)

var (
	planDiffFile string
	planFormat   string
	planOps      []string
	planMinSize  int
	planMaxSize  int
	planForce    bool
	planIgnore   []string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Propose an ordered set of commits for the current changes",
	Long: `Analyze working-tree changes (or a unified diff) and print a staging plan.

Operations given with --op are applied to the plan in order before it is
printed. <ref> is a boundary id, a unique id prefix, or a 1-based commit order.

  merge:<ref>,<ref>            merge two boundaries
  split:<ref>:<file>,...       move the listed files into a new boundary
  reorder:<ref>:<pos>[:force]  move a boundary to a 1-based position
  relabel:<ref>:<field>=<val>  set title, body or type of the message

Examples:
  stagewise plan
  stagewise plan --format json
  git diff HEAD | stagewise plan --diff -
  stagewise plan --op merge:1,2 --op relabel:1:title="auth login"`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	addPlanFlags(planCmd)
	planCmd.Flags().StringVar(&planDiffFile, "diff", "", "Read a unified diff from FILE (- for stdin) instead of git")
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "", "Output format: human, json, yaml or markdown (default from config)")
	rootCmd.AddCommand(planCmd)
}

// addPlanFlags registers the flags shared by plan and stage
func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&planOps, "op", nil, "Apply a mutation operation (repeatable)")
	cmd.Flags().IntVar(&planMinSize, "min-size", 0, "Minimum files per boundary (default from config)")
	cmd.Flags().IntVar(&planMaxSize, "max-size", 0, "Maximum files per boundary (default from config)")
	cmd.Flags().BoolVar(&planForce, "force", false, "Keep oversized boundaries instead of splitting them")
	cmd.Flags().StringArrayVar(&planIgnore, "ignore", nil, "Additional ignore pattern (repeatable)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, cfgErr := config.Load(repoFlag)
	format, err := resolveFormat(cmd, cfg)
	if err != nil {
		return err
	}
	if cfgErr != nil {
		return report(cmd.OutOrStdout(), format, cfgErr)
	}

	plan, err := buildPlan(cmd.Context(), cmd, cfg)
	if err != nil {
		return report(cmd.OutOrStdout(), format, err)
	}
	return output.Render(cmd.OutOrStdout(), staging.NewDocument(plan, time.Now()), format)
}

// resolveFormat prefers --format, then output.format from config
func resolveFormat(cmd *cobra.Command, cfg *config.Config) (output.Format, error) {
	if cmd.Flags().Changed("format") {
		return output.ParseFormat(planFormat)
	}
	if cfg != nil {
		return output.ParseFormat(cfg.Output.Format)
	}
	return output.FormatHuman, nil
}

// buildPlan reads the changes, plans them and replays --op operations
func buildPlan(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (staging.StagingStrategy, error) {
	opts := engine.OptionsFromConfig(cfg)
	if cmd.Flags().Changed("min-size") {
		opts.MinBoundarySize = planMinSize
	}
	if cmd.Flags().Changed("max-size") {
		opts.MaxBoundarySize = planMaxSize
	}
	if cmd.Flags().Changed("force") {
		opts.Force = planForce
	}
	opts.IgnorePatterns = append(opts.IgnorePatterns, planIgnore...)

	eng, err := engine.New(opts, logger)
	if err != nil {
		return staging.StagingStrategy{}, err
	}

	cs, err := readChanges(ctx, cmd.InOrStdin())
	if err != nil {
		return staging.StagingStrategy{}, err
	}

	plan, err := eng.Plan(ctx, cs)
	if err != nil {
		return staging.StagingStrategy{}, err
	}
	return applyOperations(eng, plan, planOps)
}

// readChanges loads changes from --diff or from the git working tree
func readChanges(ctx context.Context, stdin io.Reader) ([]changes.GitChange, error) {
	if planDiffFile == "" {
		repo, err := gitexec.Open(ctx, repoFlag, logger)
		if err != nil {
			return nil, err
		}
		return repo.WorkingTreeChanges(ctx)
	}

	var (
		data []byte
		err  error
	)
	if planDiffFile == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(planDiffFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read diff: %w", err)
	}
	return changes.ParseUnifiedDiff(data)
}

func applyOperations(eng *engine.Engine, plan staging.StagingStrategy, ops []string) (staging.StagingStrategy, error) {
	if len(ops) == 0 {
		return plan, nil
	}
	session := mutation.NewSession(mutation.NewService(eng.Options().BoundaryOptions(), logger), plan)
	for _, text := range ops {
		op, err := mutation.ParseOperation(text)
		if err != nil {
			return staging.StagingStrategy{}, err
		}
		if err := session.Apply(op); err != nil {
			return staging.StagingStrategy{}, err
		}
		logger.Info("operation applied", "op", op.String())
	}
	return session.Current(), nil
}

// report renders err as an error document and marks it as reported
func report(w io.Writer, format output.Format, err error) error {
	if rerr := output.Render(w, staging.NewErrorDocument(err), format); rerr != nil {
		return err
	}
	return &reportedError{err: err}
}
