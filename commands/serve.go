package commands

import (
	"github.com/spf13/cobra"

	"car-scraper/api"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides API_ADDR).")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--addr host:port]",
	Short: "Serves the stored listings over a read-only JSON API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		addr := cfg.APIAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		return api.Serve(cmd.Context(), addr, api.NewRouter(store, logger), logger)
	},
}
