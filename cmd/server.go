package cmd

import (
	"QueueFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the QueueFM server",
	Long:  `Start the HTTP server serving the playlist API, the WebSocket update channel and the Slack command endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
