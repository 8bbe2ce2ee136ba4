package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags holds the daemon connection flags used by client commands.
type APIFlags struct {
	URL     string
	Timeout string
}

// buildRoot assembles the CLI: the serve command runs the daemon, everything
// else talks to a running daemon over its REST API.
func buildRoot() *cobra.Command {
	global := &GlobalFlags{}
	api := &APIFlags{}

	root := &cobra.Command{
		Use:           "craftd",
		Short:         "craftd manages local Minecraft server instances",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&global.ConfigPath, "config", "", "path to TOML config file")
	root.PersistentFlags().StringVar(&api.URL, "api-url", "", "daemon API base URL (default http://127.0.0.1:7420/api)")
	root.PersistentFlags().StringVar(&api.Timeout, "api-timeout", "15s", "daemon API request timeout")

	root.AddCommand(
		createServeCommand(global),
		createCreateCommand(api),
		createListCommand(api),
		createStatusCommand(api),
		createUpdateCommand(api),
		createStartCommand(api),
		createStopCommand(api),
		createDeleteCommand(api),
		createSendCommand(api),
	)
	return root
}
