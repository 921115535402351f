// Package main is the entry point for the NERVE HTTP API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nerve-engine/nerve/internal/bootstrap"
	"github.com/nerve-engine/nerve/internal/catalog"
	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/web"
)

func main() {
	port := flag.Int("port", 8000, "Port to run the web server on")
	flag.Parse()

	fmt.Println()
	fmt.Println("  _   _ _____ ______     _______ ")
	fmt.Println(" | \\ | | ____|  _ \\ \\   / / ____|")
	fmt.Println(" |  \\| |  _| | |_) \\ \\ / /|  _|  ")
	fmt.Println(" | |\\  | |___|  _ < \\ V / | |___ ")
	fmt.Println(" |_| \\_|_____|_| \\_\\ \\_/  |_____|")
	fmt.Println()
	fmt.Println("  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  GPU spot-market placement engine")
	fmt.Println("  ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	cfg := config.Get()
	fmt.Printf("  tracking regions: %v (scrape interval %s)\n", catalog.RegionIDs(), cfg.Scraper.Interval)
	fmt.Println()

	eng, err := bootstrap.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer eng.Stats.Close()

	ctx := context.Background()
	if err := eng.Loop.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting scrape loop: %v\n", err)
		os.Exit(1)
	}
	defer eng.Loop.Stop()

	server := web.NewServer(*port, eng.Controller, eng.Registry)
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
