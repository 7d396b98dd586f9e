package main

import (
	"github.com/spf13/cobra"

	"github.com/jackyxhb/CareerHelper/internal/api"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local CareerHelper gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := api.NewServer()
			return server.Run(cfg.ListenAddr)
		},
	}
}
