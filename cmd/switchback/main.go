package main

import (
	"fmt"
	"os"

	"github.com/evdal/switchback/internal/switchback"
)

func main() {
	rootCmd := switchback.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// Print error once, then exit
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
