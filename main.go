package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"siamplay/config"
	"siamplay/database"
	"siamplay/jobs"
	"siamplay/middlewares"
	"siamplay/routes"
	"siamplay/services"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, using process environment")
	}

	master, err := database.ConnectMaster()
	if err != nil {
		log.Fatal("❌ Failed to connect to master database: ", err)
	}
	log.Println("✅ Connected to master database")

	registry := database.NewRegistry(master)
	gateway := middlewares.NewGateway(config.GetenvDuration("SECRET_CACHE_TTL", time.Minute))
	syncService := services.NewSyncService()

	app := fiber.New()
	routes.Setup(app, registry, gateway)

	ctx, cancel := context.WithCancel(context.Background())
	jobs.StartSyncScheduler(ctx, master, registry, syncService,
		config.GetenvDuration("SYNC_INTERVAL", time.Minute))

	addr := fmt.Sprintf("%s:%s", config.Getenv("HOST", "127.0.0.1"), config.Getenv("PORT", "3000"))
	log.Println("Server running at", addr)

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Panicf("Failed to start server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Gracefully shutting down...")
	cancel()
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	registry.ReleaseAll()
	log.Println("Server exited cleanly")
}
