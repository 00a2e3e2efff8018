package main

import (
	"log"

	"video-comments/internal/database"
	"video-comments/internal/routes"
)

func main() {
	// Init database
	database.InitDB()

	// Setup the routes (public and protected routes)
	ginRoutes := routes.SetupRoutes()

	// Start server
	port := ":8008" // This is customizable based on the environment
	log.Printf("Server starting on port %s", port)
	log.Println("API endpoints:")
	log.Println("  POST   /api/signup")
	log.Println("  POST   /api/login")
	log.Println("  GET    /api/comments")
	log.Println("  POST   /api/comments")
	log.Println("  GET    /realtime")
	log.Println("  GET    /health")

	if err := ginRoutes.Run(port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
