package main

import (
	"crewboard/internal/di"
	"crewboard/internal/structures"
	"flag"
	"fmt"
	"os"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "configs/config.yaml", "path to the config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "log to the console as well")
	flag.Parse()

	app, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "crewboard: %s\n", err)
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "crewboard: %s\n", err)
		os.Exit(1)
	}
}
