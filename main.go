package main

import (
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"heritage/auth"
	"heritage/badges"
	"heritage/comments"
	"heritage/common"
	"heritage/database"
	"heritage/posts"
	"heritage/tags"
	"heritage/users"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	router := gin.Default()

	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	}))

	authModule := auth.NewAuthModule(db, jwtSecret)
	authModule.RegisterRoutes(router)

	postModule := posts.NewPostModule(db, authModule)
	postModule.RegisterRoutes(router)

	commentModule := comments.NewCommentModule(db, authModule)
	commentModule.RegisterRoutes(router)

	tagModule := tags.NewTagModule(db, authModule)
	tagModule.RegisterRoutes(router)

	badgeModule := badges.NewBadgeModule(db, authModule)
	badgeModule.RegisterRoutes(router)

	userModule := users.NewUserModule(db, authModule)
	userModule.RegisterRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
