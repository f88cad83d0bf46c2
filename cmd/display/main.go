package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmarc0001/busmobile/module/tracker/display"
)

func main() {
	path := display.DefaultSocket
	if v := os.Getenv("DISPLAY_SOCKET"); v != "" {
		path = v
	}

	l, err := display.Listen(path)
	if err != nil {
		log.Fatalf("display: %v", err)
	}
	defer func() { _ = l.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("display listening on %s", path)
	screen := &display.Screen{}
	if err := l.Serve(ctx, screen.Apply); err != nil {
		log.Printf("display serve: %v", err)
	}
	log.Println("display stopped")
}
