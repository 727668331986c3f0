package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pipewright/flowkit/api/rest"
	"pipewright/flowkit/pkg/logger"
)

var (
	serveAddress string
	serveAPIKey  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEngine()
		if err != nil {
			return err
		}

		config := rest.DefaultConfig()
		config.Address = serveAddress
		config.APIKey = serveAPIKey
		server := rest.NewServer(e, config)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			logger.Info("shutting down")
			if err := server.Shutdown(); err != nil {
				logger.Error("shutdown failed: %v", err)
			}
		}()

		logger.Info("serving on %s", serveAddress)
		if err := server.Listen(); err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddress, "address", ":8080", "address to listen on")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "require this API key on requests")

	rootCmd.AddCommand(serveCmd)
}
