package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/evdal/switchback/internal/switchbackd"
)

func main() {
	configFlag := flag.String("config", "", "Path to the switchbackd config file")
	flag.Parse()

	if err := switchbackd.Run(*configFlag); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
