package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tv0e04k0/sk0ppbot/internal/bot"
	"github.com/tv0e04k0/sk0ppbot/internal/botcfg"
	"github.com/tv0e04k0/sk0ppbot/internal/ollama"
)

func main() {
	cfg, err := botcfg.Load()
	if err != nil {
		log.Fatalf("Fatal: %v", err)
	}

	b, err := bot.New(cfg, ollama.NewClient(cfg.OllamaURL))
	if err != nil {
		log.Fatalf("Bot init failed: %v", err)
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		b.Stop()
	}()

	b.Start()
}
