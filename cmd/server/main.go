package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/cliffdoyle/chess-arbiter/internal/handlers"
	"github.com/cliffdoyle/chess-arbiter/internal/locking"
	"github.com/cliffdoyle/chess-arbiter/internal/middleware"
	"github.com/cliffdoyle/chess-arbiter/internal/partition"
	"github.com/cliffdoyle/chess-arbiter/internal/ratingclient"
	"github.com/cliffdoyle/chess-arbiter/internal/recorder"
	"github.com/cliffdoyle/chess-arbiter/internal/registry"
	"github.com/cliffdoyle/chess-arbiter/internal/repository"
	"github.com/cliffdoyle/chess-arbiter/internal/roundctl"
	"github.com/cliffdoyle/chess-arbiter/internal/standings"
	"github.com/cliffdoyle/chess-arbiter/internal/wsnotify"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	dbHost := getEnvOrDefault("DB_HOST", "localhost")
	dbPort := getEnvOrDefault("DB_PORT", "5432")
	dbUser := getEnvOrDefault("DB_USER", "postgres")
	dbPass := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "chess_arbiter")
	serverPort := getEnvOrDefault("SERVER_PORT", "8082")

	dbConnStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=require",
		dbHost, dbPort, dbUser, dbPass, dbName)

	db, err := sql.Open("postgres", dbConnStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Successfully connected to database")

	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	config.AllowCredentials = true
	config.ExposeHeaders = []string{"Content-Length"}
	config.MaxAge = 86400
	router.Use(cors.New(config))

	tournamentRepo := repository.NewTournamentRepository(db)
	playerRepo := repository.NewPlayerRepository(db)
	pairingRepo := repository.NewPairingRepository(db)
	resultRepo := repository.NewResultRepository(db)

	reg := registry.New(playerRepo, pairingRepo)
	partitioner := partition.New(tournamentRepo)
	locks := locking.NewRegistry()

	hub := wsnotify.NewHub()
	go hub.Run()

	controller := roundctl.New(tournamentRepo, pairingRepo, resultRepo, reg, partitioner, locks, hub)
	controller.SetRatingClient(ratingclient.New())
	rec := recorder.New(pairingRepo, resultRepo, hub)
	calc := standings.New(playerRepo, pairingRepo, resultRepo)

	h := handlers.New(controller, rec, calc, pairingRepo, tournamentRepo)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		client := &wsnotify.Client{Conn: conn, Send: make(chan []byte, 256)}
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump(hub)
	})

	protected := router.Group("")
	protected.Use(middleware.AuthMiddleware())
	h.Register(router, protected)

	server := &http.Server{
		Addr:    ":" + serverPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", serverPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
