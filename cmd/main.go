package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nlp-tlp/quickgraph-sub000/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		application.Close()
		os.Exit(0)
	}()

	addr := ":" + application.Cfg.Port
	application.Log.Info("Starting server", "addr", addr)
	if err := application.Run(addr); err != nil {
		application.Log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
