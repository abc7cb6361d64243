// Package main is the entry point for the battito API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/battito/pkg/api"
	"go.uber.org/zap"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	maxSubdivision := flag.Int("max-subdivision", 1920, "Largest grid a request may ask for")
	flag.Parse()

	fmt.Printf("Starting battito API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := api.DefaultConfig()
	cfg.Port = *port
	cfg.MaxSubdivision = *maxSubdivision
	cfg.Logger = logger

	if err := api.Run(cfg); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
