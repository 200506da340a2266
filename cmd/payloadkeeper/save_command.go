package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"payloadkeeper/internal/capture"
	"payloadkeeper/internal/hostapi"
)

func newSaveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "save [file|-]...",
		Short: "Save generation events from files or stdin into the payload tree",
		Long: `Save reads one generation event per file (or from stdin when no file or "-"
is given) and records it exactly as the HTTP bridge would. Events may be a bare
payload object or {"payload": {...}, "metadata": {...}}. Identical events within
the dedup window are written once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, logger, err := ctx.openStore()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"-"}
			}

			opts := capture.OptionsFromConfig(cfg)
			opts.Logger = logger
			recorder := capture.NewRecorder(store, opts)

			return withTreeLock(cmd.Context(), store, wait, func() error {
				var responses []hostapi.GenerationResponse
				var failures int
				for _, source := range args {
					data, err := readEventSource(cmd, source)
					if err != nil {
						return err
					}
					ev, err := capture.DecodeEvent(data)
					if err != nil {
						return fmt.Errorf("%s: %w", displaySource(source), err)
					}
					out := recorder.HandleGeneration(cmd.Context(), ev)
					if out.Err != nil {
						failures++
					}
					if jsonOutput {
						responses = append(responses, hostapi.FromOutcome(out))
						continue
					}
					fmt.Fprintln(cmd.OutOrStdout(), describeOutcome(displaySource(source), out))
				}
				if jsonOutput {
					if err := writeJSON(cmd, responses); err != nil {
						return err
					}
				}
				if failures > 0 {
					return fmt.Errorf("%d of %d event(s) failed to save", failures, len(args))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().DurationVar(&wait, "wait", 0, "How long to wait for the tree lock (0 fails immediately)")
	return cmd
}

func readEventSource(cmd *cobra.Command, source string) ([]byte, error) {
	if source == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return data, nil
}

func displaySource(source string) string {
	if source == "-" {
		return "stdin"
	}
	return filepath.Base(source)
}

func describeOutcome(source string, out capture.Outcome) string {
	switch {
	case out.Payload == nil:
		return fmt.Sprintf("%s: no payload", source)
	case out.Skipped:
		return fmt.Sprintf("%s: skipped duplicate", source)
	case !out.Saved:
		return fmt.Sprintf("%s: save failed: %v", source, out.Err)
	}
	var notes []string
	if out.Result.Draft {
		notes = append(notes, "draft")
	}
	if !out.Result.Tags.Empty() {
		notes = append(notes, out.Result.Tags.String())
	}
	if out.Result.Replaced {
		notes = append(notes, "replaced")
	}
	if out.Result.SkeletonPath != "" {
		notes = append(notes, "skeleton "+filepath.Base(out.Result.SkeletonPath))
	}
	line := fmt.Sprintf("%s: saved %s", source, out.Result.Path)
	if len(notes) > 0 {
		line += " (" + strings.Join(notes, ", ") + ")"
	}
	if out.Err != nil {
		line += fmt.Sprintf("; snapshot update failed: %v", out.Err)
	}
	return line
}
