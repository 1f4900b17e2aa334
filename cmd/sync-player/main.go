// Package main is the sync-player entry point (HTTP + WebSocket/SSE).
package main

import (
	"log"

	"github.com/happy-game/sync-player/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
