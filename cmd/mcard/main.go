package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"

	"mediacarousel/internal/mcard"
)

func main() {
	listen := flag.String("listen", "127.0.0.1:7437", "listen address (tcp)")
	verbose := flag.Bool("verbose", false, "verbose logging")
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	s := mcard.NewServer(mcard.Options{Listen: *listen, Logger: logger})
	if err := s.Run(); err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			_, _ = fmt.Fprintf(os.Stderr, "listen address in use: %s\nTry: -listen 127.0.0.1:7438\n", *listen)
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
