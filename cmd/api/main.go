package main

import (
	"net/http"

	"bookvoice/internal/api"
	"bookvoice/internal/config"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	h := api.NewServer(cfg)
	log.Info("bookvoice api listening", "addr", cfg.APIAddr, "engine", cfg.Engine)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
