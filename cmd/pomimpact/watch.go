package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kestrel-ci/pomimpact/internal/config"
	"github.com/kestrel-ci/pomimpact/internal/engine"
)

var watchFormat string

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Re-run analysis whenever tracked files change",
	Long: `Watch the repository for changes and re-run the impact analysis on
every write, debounced, printing the updated selection each time.

Press Ctrl+C to stop watching.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchFormat, "format", "summary", "Output format: json, summary")
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	if watchFormat != "json" && watchFormat != "summary" {
		return fmt.Errorf("unknown format: %s", watchFormat)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	err = filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if shouldIgnoreWatchDir(info.Name()) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add directories to watcher: %w", err)
	}

	fmt.Printf("Watching %s for changes...\n", absPath)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runOnce := func() {
		cfg, err := config.Load(absPath)
		if err != nil {
			fmt.Printf("config load failed: %v\n", err)
			return
		}
		cfg.RepoRoot = absPath

		result, err := engine.Run(ctx, *cfg)
		if err != nil {
			fmt.Printf("analysis failed: %v\n", err)
			return
		}
		if watchFormat == "json" {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				fmt.Printf("failed to encode result: %v\n", err)
				return
			}
			fmt.Println(string(data))
			return
		}
		printAnalyzeSummary(result)
	}

	fmt.Println("Running initial analysis...")
	runOnce()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var debounceTimer *time.Timer
	debounceDelay := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRelevantWatchChange(event) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				fmt.Printf("\n%s changed, re-analyzing...\n", filepath.Base(event.Name))
				runOnce()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Printf("watcher error: %v\n", err)

		case <-sigChan:
			fmt.Println("\nStopping watcher...")
			return nil
		}
	}
}

func shouldIgnoreWatchDir(name string) bool {
	ignoreDirs := map[string]bool{
		".git":         true,
		"node_modules": true,
		"dist":         true,
		"build":        true,
		".next":        true,
	}
	return ignoreDirs[name]
}

func isRelevantWatchChange(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	relevantExts := map[string]bool{
		".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	}
	name := filepath.Base(event.Name)
	configFiles := map[string]bool{
		"package.json": true, ".pomimpact.yaml": true,
	}
	return relevantExts[ext] || configFiles[name]
}
