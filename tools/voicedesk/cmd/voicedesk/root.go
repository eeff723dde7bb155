package main

import (
	"github.com/spf13/cobra"

	"github.com/AltairaLabs/VoiceDesk/pkg/config"
	"github.com/AltairaLabs/VoiceDesk/runtime/logger"
	"github.com/AltairaLabs/VoiceDesk/runtime/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configFile  string
	envFile     string
	verbose     bool
	baseURL     string
	locale      string
	metricsAddr string
}

// flagKeys maps persistent flags to the configuration keys they override.
var flagKeys = map[string]string{
	"base-url":     "api.base_url",
	"locale":       "ui.locale",
	"metrics-addr": "metrics.addr",
}

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "voicedesk",
		Short:         "Record voice messages and meetings for your assistant",
		Version:       version.GetVersion(),
		SilenceUsage:  true,  // Don't print usage on error
		SilenceErrors: false, // Do print errors
		Long: `VoiceDesk records audio from the local microphone and sends it to the
assistant backend. A voice message is uploaded once when you stop; a meeting
is uploaded in segments while you record and summarized at the end.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if opts.verbose {
				logger.SetVerbose(true)
			}
		},
	}
	rootCmd.SetVersionTemplate(version.GetVersionInfo() + "\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/voicedesk/config.yaml)")
	pf.StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default: ./.env when present)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&opts.baseURL, "base-url", "", "backend API base URL")
	pf.StringVar(&opts.locale, "locale", "", "notification language (pt-BR or en)")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	rootCmd.AddCommand(
		NewRecordCmd(opts),
		NewMeetingCmd(opts),
		NewSendCmd(opts),
		NewMessageCmd(opts),
		NewLoginCmd(opts),
		NewLogoutCmd(opts),
		NewHistoryCmd(opts),
		NewConfigCmd(opts),
		NewVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads the configuration with changed flags applied last.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	overrides := make(map[string]any)
	flags := cmd.Flags()
	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	return config.Load(config.LoadOptions{
		ConfigFile: opts.configFile,
		EnvFile:    opts.envFile,
		Overrides:  overrides,
	})
}
