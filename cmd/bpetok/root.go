package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mylxsw/asteria/log"
	"github.com/spf13/cobra"

	"github.com/bpetok/bpe-openai/bpetok"
	"github.com/bpetok/bpe-openai/internal/config"
	"github.com/bpetok/bpe-openai/internal/profile"
)

var (
	cfgFile    string
	jsonOutput bool
	activeCfg  config.Config
	registry   *profile.Registry
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "bpetok",
		Short:         "Byte-pair-encoding tokenizer for OpenAI and Voyage vocabularies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.Log)
			registry = profile.NewRegistry(profile.Builtin(loaded)...)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Write results as JSON")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newDecodeCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newProfilesCmd())
	cmd.AddCommand(newFetchCmd())

	return cmd
}

func setupLogger(c config.LogConfig) {
	debug := strings.EqualFold(c.Level, "debug")
	if c.FileLine || debug {
		log.DefaultWithFileLine(true)
	}
	profile.EnableDebugLogging(debug)
	if debug {
		log.Debug("debug logging enabled")
	}
}

func openTokenizer() (*bpetok.Tokenizer, error) {
	if registry == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return bpetok.NewWithRegistry(registry, activeCfg.Profiles.Default)
}

// inputText joins args with spaces, or reads all of stdin when there are no
// args.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}
