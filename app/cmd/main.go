package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studykit/app/server"
	"studykit/types"
)

func init() {
	loadEnvVariables()
}

func main() {
	s := server.NewServer(types.LoadConfig())

	go s.Run()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down server...")
	s.Stop()
}

func loadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
}
