package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"prefabforge/internal/config"
	"prefabforge/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "YAML configuration file")
	frames := flag.Int("frames", 120, "frames to simulate when headless")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] scene.json\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(ctx, cfg, flag.Arg(0), log)
	if err != nil {
		log.Error("startup failed", logging.Err(err))
		os.Exit(1)
	}
	defer app.Close()

	if cfg.Headless {
		err = app.RunHeadless(ctx, *frames)
	} else {
		err = app.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("editor stopped", logging.Err(err))
		os.Exit(1)
	}
}
