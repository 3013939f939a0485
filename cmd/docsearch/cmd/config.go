package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docsearch/configs"
	"github.com/Aman-CERP/docsearch/internal/config"
	"github.com/Aman-CERP/docsearch/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage project configuration",
		Long: `Manage the docsearch configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/docsearch/config.yaml)
  3. Project config (.docsearch.yaml, .docsearch.yml or .docsearch.toml)
  4. Environment variables (DOCSEARCH_*)`,
		Example: `  # Create .docsearch.yaml with the defaults
  docsearch config init

  # Show effective configuration (merged from all sources)
  docsearch config show

  # Print config file paths
  docsearch config path

  # Undo the last 'config init --force'
  docsearch config restore`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the project configuration file",
		Long: `Create .docsearch.yaml in the project directory with the default settings.

An existing file is kept unless --force is given, in which case it is
backed up first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite the existing configuration (a backup is kept)")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.New(cmd.OutOrStdout()).JSON(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print config file paths",
		Long:  `Print the user configuration path and the project configuration file in use.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := filepath.Abs(projectDir)
			if err != nil {
				return err
			}
			project := config.FindProjectFile(root)
			if project == "" {
				project = "(none)"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user:    %s\n", config.GetUserConfigPath())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "project: %s\n", project)
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore the newest backup of the project configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigRestore(cmd)
		},
	}
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := filepath.Abs(projectDir)
	if err != nil {
		return err
	}
	path := config.FindProjectFile(root)
	if path == "" {
		path = filepath.Join(root, config.ProjectFiles[0])
	} else {
		if !force {
			out.Warning("Project configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Newline()
			out.Status("💡", "Use --force to replace it with the defaults (a backup is kept)")
			return nil
		}
		if filepath.Ext(path) == ".toml" {
			path = filepath.Join(root, config.ProjectFiles[0])
		}
	}

	backupPath, err := config.Backup(path)
	if err != nil {
		return fmt.Errorf("failed to backup config: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory %s: %w", root, err)
	}
	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	out.Success("Created project configuration")
	out.Statusf("📁", "Location: %s", path)
	if backupPath != "" {
		out.Statusf("💾", "Backup: %s", backupPath)
	}
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Describe your fields in the fields section")
	out.Status("", "  2. Run 'docsearch index --file <documents.jsonl>'")
	out.Status("", "  3. Run 'docsearch config show' to verify")

	return nil
}

func runConfigRestore(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	root, err := filepath.Abs(projectDir)
	if err != nil {
		return err
	}
	path := filepath.Join(root, config.ProjectFiles[0])

	backups, err := config.ListBackups(path)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		out.Warningf("No backups found for %s", path)
		return nil
	}
	if err := config.Restore(path, backups[0]); err != nil {
		return err
	}
	out.Successf("Restored %s", path)
	out.Statusf("💾", "From: %s", backups[0])
	return nil
}
