package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"payloadkeeper/internal/hostapi"
	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/preflight"
)

type statusReport struct {
	Tree   hostapi.StatusResponse `json:"tree"`
	Checks []checkView            `json:"checks"`
}

type checkView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show payload tree counts, directory checks and bridge health",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			summary, err := store.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			checks := preflight.RunAll(cmd.Context(), cfg)
			bridge := preflight.CheckBridge(cmd.Context(), cfg.Server.Bind)

			if jsonOutput {
				report := statusReport{Tree: hostapi.FromSummary(store.Root(), summary)}
				for _, r := range append(checks, bridge) {
					report.Checks = append(report.Checks, checkView{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
				}
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			printer := newStatusPrinter(out)
			writeStatus(printer, store.Root(), summary, checks, bridge)
			fmt.Fprintln(out, printer.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}

func writeStatus(p *statusPrinter, root string, summary layout.Summary, checks []preflight.Result, bridge preflight.Result) {
	p.section("Payload tree")
	p.line("Root", statusInfo, root)
	p.line("Payloads", statusInfo, strconv.Itoa(summary.Payloads))
	p.line("Drafts", statusInfo, strconv.Itoa(summary.Drafts))
	if summary.HasLatest {
		p.line("Latest", statusOK, layout.LatestFileName)
	} else {
		p.line("Latest", statusWarn, "none saved yet")
	}
	skeletons := "none"
	if len(summary.Skeletons) > 0 {
		skeletons = strings.Join(summary.Skeletons, ", ")
	}
	p.line("Skeletons", statusInfo, skeletons)
	if !summary.Newest.IsZero() {
		p.line("Newest", statusInfo, summary.Newest.Format(time.RFC3339))
	}

	p.section("Checks")
	for _, r := range checks {
		p.check(r.Name, r.Passed, r.Detail, statusError)
	}
	// A stopped bridge is normal between sessions.
	p.check(bridge.Name, bridge.Passed, bridge.Detail, statusWarn)
}
