package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nrenier/ICorNet-sub000/handler"
	"github.com/nrenier/ICorNet-sub000/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development backend",
	Long: `Start an in-memory backend implementing the dashboard API.

Users come from server.users, companies from server.fixtures (or a built-in
set). Relationships are read from Neo4j when server.neo4j.uri is set and
derived from shared sectors otherwise.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	sc := &cfg.Server
	if cmd.Flags().Changed("port") {
		sc.Port = servePort
	}
	if sc.JWTSecret == "" {
		return errors.New("server.jwt_secret (or ICORNET_JWT_SECRET) is required")
	}

	fixtures, err := store.LoadFixtures(sc.Fixtures)
	if err != nil {
		return err
	}

	var graph store.GraphSource
	if sc.Neo4j.URI != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		neo, err := store.NewNeo4jGraphSource(ctx, &sc.Neo4j)
		cancel()
		if err != nil {
			return err
		}
		defer neo.Close(context.Background())
		graph = neo
		slog.Info("relationships served from neo4j", "uri", sc.Neo4j.URI)
	}

	gin.SetMode(sc.Mode)
	backend := handler.NewBackend(sc, fixtures, graph)
	defer backend.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", sc.Port),
		Handler:      handler.NewRouter(sc, backend),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", sc.Port, "users", len(sc.Users))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	case <-cmd.Context().Done():
	}
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server exited gracefully")
	return nil
}
