package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/synodriver/davgate"
	"github.com/synodriver/davgate/accounts"
	"github.com/synodriver/davgate/auth"
	"github.com/synodriver/davgate/config"
	"github.com/synodriver/davgate/filesystem"
	"github.com/synodriver/davgate/hidefile"
	davgatehttp "github.com/synodriver/davgate/http"
	"github.com/synodriver/davgate/response"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long:  `Start the davgate HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8000, "HTTP server port")
	serveCmd.Flags().String("root", "", "directory to serve (default: ./data)")
	serveCmd.Flags().String("realm", "", "authentication realm")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	accountList, err := accounts.Load(cfg.Auth.Accounts)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	store, err := davgate.NewCredentialStore(accountList)
	if err != nil {
		return fmt.Errorf("build credential store: %w", err)
	}
	for _, a := range accountList {
		slog.Info("registered user", "username", a.Username, "admin", a.Admin)
	}

	var authn *auth.Authenticator
	if !cfg.Server.PublicAccess {
		authn, err = auth.New(cfg.AuthenticatorConfig(), store)
		if err != nil {
			return fmt.Errorf("build authenticator: %w", err)
		}
	}

	sender, err := response.NewSender(cfg.Compression)
	if err != nil {
		return fmt.Errorf("build response sender: %w", err)
	}

	filter, err := hidefile.New(cfg.HideFile)
	if err != nil {
		return fmt.Errorf("build hide-file filter: %w", err)
	}

	if err := os.MkdirAll(cfg.Server.Root, 0o750); err != nil {
		return fmt.Errorf("create root directory: %w", err)
	}
	root, err := os.OpenRoot(cfg.Server.Root)
	if err != nil {
		return fmt.Errorf("open root directory: %w", err)
	}
	defer func() { _ = root.Close() }()

	handlerConfig := davgatehttp.HandlerConfig{
		CORS:          cfg.CORS,
		EnableListing: cfg.Server.EnableListing,
	}
	handler := davgatehttp.NewHandler(handlerConfig, filesystem.New(root), authn, sender, filter)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler.Router(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
	}()

	slog.Info("starting server", "addr", addr, "root", cfg.Server.Root, "realm", cfg.Auth.Realm)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
