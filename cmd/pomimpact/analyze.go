package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kestrel-ci/pomimpact/internal/config"
	"github.com/kestrel-ci/pomimpact/internal/engine"
)

var (
	analyzeBase               string
	analyzeTestsRoot          string
	analyzeChangedSpecPrefix  string
	analyzeBias               string
	analyzeFormat             string
	analyzeNoWorkingTree      bool
	analyzeNoUntrackedSpecs   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Report which specs are affected by the current changes",
	Long: `Loads .pomimpact.yaml (if present) from the target directory, runs the
impact analysis against the repository there, and prints the result.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeBase, "base", "", "Base ref to diff against HEAD, e.g. origin/main")
	analyzeCmd.Flags().StringVar(&analyzeTestsRoot, "tests-root", "", "Override profile.tests_root_relative")
	analyzeCmd.Flags().StringVar(&analyzeChangedSpecPrefix, "changed-spec-prefix", "", "Override profile.changed_spec_prefix")
	analyzeCmd.Flags().StringVar(&analyzeBias, "bias", "", "Override selection_bias: fail-open, balanced, fail-closed")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "Output format: json, summary")
	analyzeCmd.Flags().BoolVar(&analyzeNoWorkingTree, "no-working-tree", false, "Don't diff the working tree against HEAD in addition to base_ref")
	analyzeCmd.Flags().BoolVar(&analyzeNoUntrackedSpecs, "no-untracked-specs", false, "Don't consider never-committed spec files for selection")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	targetPath := "."
	if len(args) > 0 {
		targetPath = args[0]
	}

	absPath, err := filepath.Abs(targetPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", absPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}

	cfg, err := config.Load(absPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.RepoRoot = absPath

	if cmd.Flags().Changed("base") {
		cfg.BaseRef = analyzeBase
	}
	if cmd.Flags().Changed("tests-root") {
		cfg.Profile.TestsRootRelative = analyzeTestsRoot
	}
	if cmd.Flags().Changed("changed-spec-prefix") {
		cfg.Profile.ChangedSpecPrefix = analyzeChangedSpecPrefix
	}
	if cmd.Flags().Changed("bias") {
		cfg.SelectionBias = analyzeBias
	}
	if analyzeNoWorkingTree {
		cfg.IncludeWorkingTreeWithBase = false
	}
	if analyzeNoUntrackedSpecs {
		cfg.IncludeUntrackedSpecs = false
	}

	if analyzeFormat != "json" && analyzeFormat != "summary" {
		return fmt.Errorf("unknown format: %s", analyzeFormat)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	result, err := engine.Run(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeFormat == "summary" {
		printAnalyzeSummary(result)
		return nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printAnalyzeSummary(result *engine.Result) {
	if !result.HasAnythingToRun {
		fmt.Println("No specs selected.")
		return
	}

	if result.GlobalWatch.Forced {
		fmt.Printf("Global watch pattern matched — running all %d specs.\n", len(result.SelectedSpecs))
	} else {
		fmt.Printf("%d spec(s) selected:\n", len(result.SelectedSpecs))
	}

	for _, spec := range result.SelectedSpecs {
		fmt.Printf("  %-60s %s\n", spec, result.ReasonsByPath[spec])
	}

	fmt.Printf("\nchanged files: %d, changed methods: %d, impacted classes: %d, impacted methods: %d\n",
		result.Sizes.ChangedFiles, result.Sizes.ChangedMethods, result.Sizes.ImpactedClasses, result.Sizes.ImpactedMethods)

	if len(result.Warnings) > 0 {
		fmt.Printf("%d warning(s):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("  [%s] %s: %s\n", w.Kind, w.Path, w.Message)
		}
	}
}
