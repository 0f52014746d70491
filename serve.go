package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"midiroll/api"
	"midiroll/theme"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generation and piano-roll rendering over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		palette, err := theme.LoadOrDefault(cfg.UI.Palette)
		if err != nil {
			fmt.Printf("palette: %v, using default\n", err)
		}

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           api.New(cfg, palette).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-cmd.Context().Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()

		fmt.Println("Running server on", serveAddr, "...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}
