// Package main is the entry point for the octatools API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dijksterhuis/octatools/pkg/api"
	"github.com/dijksterhuis/octatools/pkg/debug"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	debugLog := flag.Bool("debug", false, "Write a debug log to "+debug.DefaultPath())
	flag.Parse()

	if *debugLog {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "Debug log error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Starting octatools API server on port %d...\n", *port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", *port)

	if err := api.StartServer(*port); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
