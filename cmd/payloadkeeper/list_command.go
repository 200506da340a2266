package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"payloadkeeper/internal/classify"
	"payloadkeeper/internal/hostapi"
	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/payload"
)

const listTimeLayout = "2006-01-02 15:04:05"

var listColumns = []column{
	{title: "Name"},
	{title: "Time"},
	{title: "Tags"},
	{title: "Location"},
	{title: "Bytes", align: alignRight},
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var scopeFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payload files in the tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := layout.ParseScope(scopeFlag)
			if err != nil {
				return err
			}
			store, _, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			files, err := store.List(cmd.Context(), scope)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, hostapi.FileListResponse{Scope: string(scope), Files: hostapi.FromFiles(files)})
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No payload files")
				return nil
			}
			rows := make([][]string, 0, len(files))
			for _, f := range files {
				location := "root"
				if f.Draft {
					location = "drafts"
				}
				name := f.Name
				if !f.Canonical {
					name += " *"
				}
				tags := "-"
				if !f.Tags.Empty() {
					tags = strings.Join(f.Tags.Names(), ",")
				}
				rows = append(rows, []string{
					name,
					f.Time.Format(listTimeLayout),
					tags,
					location,
					strconv.FormatInt(f.Size, 10),
				})
			}
			fmt.Fprintln(out, renderTable(listColumns, rows))
			fmt.Fprintf(out, "%d file(s); * marks names that reconcile would rename\n", len(files))
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", string(layout.ScopeAll), "Directories to list: root, drafts or all")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the listing as JSON")
	return cmd
}

func newLatestCommand(ctx *commandContext) *cobra.Command {
	var pretty bool
	var skeleton string

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Print payload_latest.json or a mode skeleton",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			var p payload.Payload
			switch mode := strings.ToLower(strings.TrimSpace(skeleton)); mode {
			case "":
				p, err = store.Latest()
			case classify.ModeSingle, classify.ModeXYZ:
				p, err = store.Skeleton(mode)
			default:
				return fmt.Errorf("unknown skeleton mode %q (want %s or %s)", skeleton, classify.ModeSingle, classify.ModeXYZ)
			}
			if err != nil {
				return err
			}
			return printPayload(cmd, p, pretty)
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the output")
	cmd.Flags().StringVar(&skeleton, "skeleton", "", "Print the skeleton for a mode (single or xyz) instead")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print one payload file from the root or drafts directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			path, err := store.Find(args[0])
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("payload %s not found in %s or its drafts directory", filepath.Base(args[0]), store.Root())
				}
				return err
			}
			p, err := store.Read(path)
			if err != nil {
				return err
			}
			return printPayload(cmd, p, pretty)
		},
	}

	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the output")
	return cmd
}

func printPayload(cmd *cobra.Command, p payload.Payload, pretty bool) error {
	out := cmd.OutOrStdout()
	if p == nil || !pretty {
		fmt.Fprintln(out, payload.Format(p))
		return nil
	}
	data, err := payload.Encode(p)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
