package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alvarotolentino/portkey/federation"
	"github.com/alvarotolentino/portkey/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	var (
		configPath string
		addr       string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:          "portkey",
		Short:        "GraphQL federation gateway",
		Long:         "portkey routes each top-level field of a GraphQL operation to the subgraph that owns it, fans the per-service operations out in parallel, and merges the responses.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, addr, debug)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "./schemas/supergraph.yaml", "path to the supergraph manifest")
	cmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "verbose logging")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, addr string, debug bool) error {
	// A .env is optional; flags and defaults cover everything it can set.
	_ = godotenv.Load()

	if env := os.Getenv("PORTKEY_CONFIG"); env != "" {
		configPath = env
	}
	if env := os.Getenv("PORTKEY_ADDR"); env != "" {
		addr = env
	}

	var log logger.Logger
	if debug {
		log = logger.NewDevelopment()
	} else {
		log = logger.New()
	}

	registry := federation.NewSchemaRegistry(log)
	planner := federation.NewQueryPlanner(log)
	executor := federation.NewQueryExecutor(log)
	gateway := federation.NewGateway(registry, planner, executor, configPath, log)

	if err := gateway.LoadSchemas(); err != nil {
		log.Error("loading schemas", "error", err)
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", federation.HTTPHandler(gateway, log))

	server := &http.Server{Addr: addr, Handler: mux}

	errs := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errs <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			return err
		}
		return nil
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "error", err)
		return err
	}
	return nil
}
