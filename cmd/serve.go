// =============================================================================
// POS Migrator - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which exposes the configured store
// over HTTP so that another migrator can use it through the http driver.
//
// COMMAND USAGE:
//   migrator serve [--addr :8080]
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/config"
	"github.com/nayeem-1786/AutoDetailApp-sub001/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveAddr is the listen address.
var serveAddr string

// serveCmd represents the 'serve' command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the store over HTTP",
	Long: `The serve command opens the configured store (sqlite or memory) and serves
it over HTTP until interrupted. Point another migrator at it with:

  store:
    driver: http
    url: http://host:8080`,

	RunE: func(cmd *cobra.Command, args []string) error {
		if mainConfig.Store.Driver == config.DriverHTTP {
			return fmt.Errorf("serve needs a local store; driver %q only forwards to another server", config.DriverHTTP)
		}

		s, storeName, closeStore, err := openStore(mainConfig, false)
		if err != nil {
			return err
		}
		defer closeStore()

		srv := &http.Server{
			Addr:         serveAddr,
			Handler:      store.NewHandler(s, logger),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		return serveUntilSignal(srv, storeName)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(
		&serveAddr,
		"addr",
		":8080",
		"Listen address",
	)
}

// serveUntilSignal runs srv until SIGINT or SIGTERM, then shuts it down
// gracefully.
func serveUntilSignal(srv *http.Server, storeName string) error {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving store", zap.String("addr", srv.Addr), zap.String("store", storeName))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-done:
	}
	logger.Info("shutting down", zap.String("addr", srv.Addr))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
