package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/teilomillet/quill/config"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "v0.1.0"

const defaultConfigFile = "quill.yaml"

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "quill",
		Short:         "Text transformation proxy for LLM backends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile, "Path to configuration file")

	root.AddCommand(
		newServeCmd(&configFile),
		newValidateCmd(&configFile),
		newVersionCmd(),
		newPromptCmd(),
		newTransformCmd(&configFile),
	)
	return root
}

// loadConfig reads path. A missing default file falls back to the built-in
// configuration; a missing explicit file is an error.
func loadConfig(path string) (cfg *config.Config, fromFile bool, err error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) && path == defaultConfigFile {
		cfg, err = config.LoadDefault()
		if err != nil {
			return nil, false, fmt.Errorf("load default config: %w", err)
		}
		return cfg, false, nil
	}
	cfg, err = config.LoadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, true, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "quill %s\n", Version)
		},
	}
}

func newValidateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, fromFile, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			source := *configFile
			if !fromFile {
				source = "built-in defaults"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (%s)\n", source)
			return nil
		},
	}
}
