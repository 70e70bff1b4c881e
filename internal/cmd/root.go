// Package cmd wires the forgepilot command line: the chat client, the
// local agent server and a few one-shot helpers.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iammorganparry/forgepilot/internal/config"
)

// Version is stamped at build time with -ldflags "-X ...cmd.Version=..."
var Version = "dev"

// app carries the loaded configuration to subcommands
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree around a fresh viper instance
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "forgepilot",
		Short: "Chat client for the ForgePilot scaffolding agent",
		Long: `ForgePilot turns a project description into a plan, a set of generated
files and a summary of simulated tool runs. Running forgepilot with no
subcommand opens the chat client.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE:              a.runChat,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is $HOME/.config/forgepilot/config.yaml)")
	flags.String("backend-url", "", "agent backend base URL")
	flags.String("api-prefix", "", "path prefix for the health and message endpoints")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("backend_url", flags.Lookup("backend-url"))
	_ = a.v.BindPFlag("api_prefix", flags.Lookup("api-prefix"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		a.newChatCmd(),
		a.newServeCmd(),
		a.newHealthCmd(),
		a.newSendCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// load reads config once flags are parsed
func (a *app) load(cmd *cobra.Command, args []string) error {
	if err := config.Init(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the forgepilot version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "forgepilot "+Version)
		},
	}
}
