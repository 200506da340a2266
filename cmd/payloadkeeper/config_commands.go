package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"payloadkeeper/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Long:        "Write a sample configuration to --path, the global --config path, or the default location, in that order.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath, ctx.configFlag)
			if err != nil {
				return err
			}
			created, err := config.CreateSample(target, overwrite)
			if err != nil {
				return err
			}
			if !created {
				return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\nEdit paths.payloads_dir, then run `payloadkeeper config validate`.\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(pathFlag string, configFlag *string) (string, error) {
	target := strings.TrimSpace(pathFlag)
	if target == "" && configFlag != nil {
		target = strings.TrimSpace(*configFlag)
	}
	if target == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(target)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "Payload directory: %s\n", cfg.Paths.PayloadsDir)
			fmt.Fprintf(out, "Collision policy: %s\n", cfg.Naming.CollisionPolicy)
			fmt.Fprintf(out, "Include base64 images: %s\n", yesNo(cfg.Display.IncludeBase64Images))
			fmt.Fprintf(out, "Startup deduplicate: %s\n", yesNo(cfg.Display.StartupDeduplicate))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
