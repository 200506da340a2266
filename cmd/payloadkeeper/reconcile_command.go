package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/reconcile"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var dedupe bool
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rename and relocate existing payload files to the current rules",
		Long: `Reconcile gives every payload file in the tree root its canonical name and
moves drafts into the drafts directory. With --dedupe (or display.startup_deduplicate)
older payloads sharing a prompt pair are deleted, keeping the newest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, logger, err := ctx.openStore()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("dedupe") {
				dedupe = cfg.Display.StartupDeduplicate
			}

			var result reconcile.Result
			run := func() error {
				var runErr error
				result, runErr = reconcile.Run(cmd.Context(), store, reconcile.Options{
					Deduplicate: dedupe,
					DryRun:      dryRun,
					Logger:      logger,
				})
				return runErr
			}
			if dryRun {
				err = run()
			} else {
				err = withTreeLock(cmd.Context(), store, wait, run)
			}
			if err != nil {
				return err
			}

			printReconcileResult(cmd.OutOrStdout(), store.Root(), result)
			if problems := len(result.Reorganize.Errors) + len(result.Errors); problems > 0 {
				return fmt.Errorf("reconcile finished with %d error(s)", problems)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report planned changes without touching the tree")
	cmd.Flags().BoolVar(&dedupe, "dedupe", false, "Delete older payloads that share a prompt pair (default from display.startup_deduplicate)")
	cmd.Flags().DurationVar(&wait, "wait", 0, "How long to wait for the tree lock (0 fails immediately)")
	return cmd
}

func printReconcileResult(out io.Writer, root string, result reconcile.Result) {
	verb := func(done, planned string) string {
		if result.DryRun {
			return planned
		}
		return done
	}
	rel := func(path string) string {
		if r, err := filepath.Rel(root, path); err == nil {
			return r
		}
		return path
	}

	report := result.Reorganize
	for _, m := range report.Moved {
		fmt.Fprintf(out, "%s %s -> %s\n", verb("Moved", "Would move"), rel(m.From), rel(m.To))
	}
	for _, m := range report.Renamed {
		fmt.Fprintf(out, "%s %s -> %s\n", verb("Renamed", "Would rename"), rel(m.From), rel(m.To))
	}
	for _, m := range report.Conflicts {
		fmt.Fprintf(out, "Conflict %s -> %s (destination exists)\n", rel(m.From), rel(m.To))
	}
	for _, issue := range report.Skipped {
		fmt.Fprintf(out, "Skipped %s: %v\n", rel(issue.Path), issue.Err)
	}
	printIssues(out, rel, report.Errors)
	for _, d := range result.Deletions {
		fmt.Fprintf(out, "%s %s (kept %s)\n", verb("Deleted", "Would delete"), rel(d.Path), rel(d.Kept))
	}
	printIssues(out, rel, result.Errors)

	fmt.Fprintf(out, "%s: %d moved, %d renamed, %d unchanged, %d conflict(s), %d skipped, %d deleted\n",
		verb("Reconciled", "Dry run"),
		len(report.Moved), len(report.Renamed), report.Unchanged,
		len(report.Conflicts), len(report.Skipped), len(result.Deletions))
}

func printIssues(out io.Writer, rel func(string) string, issues []layout.Issue) {
	for _, issue := range issues {
		fmt.Fprintf(out, "Error %s: %v\n", rel(issue.Path), issue.Err)
	}
}
