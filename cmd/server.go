package cmd

import (
	"aistudio/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the studio HTTP server",
	Long:  `Start the HTTP API, the job dispatcher and the websocket job event stream. This is the default command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
