package main

import (
	"net/http"

	"securechat/backend/internal/auth"
	"securechat/backend/internal/config"
	"securechat/backend/internal/database"
	"securechat/backend/internal/handler"
	"securechat/backend/internal/hub"
	"securechat/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func init() {
	config.LoadConfig()
}

// @title           SecureChat API
// @version         1.0
// @description     End-to-end-encrypted messaging between friends.
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	db := database.Connect(config.AppConfig.DatabaseURL)

	eventHub := hub.New()
	users := service.NewUserService(db)
	relationships := service.NewRelationshipService(db, users)
	messages := service.NewMessageService(db, users, relationships, eventHub)

	authHandler := handler.NewAuthHandler(users)
	userHandler := handler.NewUserHandler(users)
	friendshipHandler := handler.NewFriendshipHandler(users, relationships)
	messageHandler := handler.NewMessageHandler(messages, eventHub)

	router := gin.Default()

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("/me", userHandler.GetMe)
			userRoutes.PUT("/me/nickname", userHandler.UpdateNickname)
			userRoutes.PUT("/me/keys", userHandler.UploadKeys)
			userRoutes.GET("/:username/keys", userHandler.GetUserKeys)
		}

		// Friendship routes (protected)
		friendshipRoutes := apiV1.Group("/friendships")
		friendshipRoutes.Use(auth.AuthMiddleware())
		{
			friendshipRoutes.GET("", friendshipHandler.ListFriends)
			friendshipRoutes.POST("/requests", friendshipHandler.SendRequest)
			friendshipRoutes.PUT("/requests/accept", friendshipHandler.AcceptRequest)
			friendshipRoutes.PUT("/requests/decline", friendshipHandler.DeclineRequest)
			friendshipRoutes.GET("/requests/pending", friendshipHandler.ListPending)
			friendshipRoutes.POST("/block", friendshipHandler.Block)
			friendshipRoutes.POST("/unblock", friendshipHandler.Unblock)
			friendshipRoutes.DELETE("/:username", friendshipHandler.Unfriend)
		}

		// Message routes (protected)
		messageRoutes := apiV1.Group("/messages")
		messageRoutes.Use(auth.AuthMiddleware())
		{
			messageRoutes.POST("", messageHandler.SendMessage)
			messageRoutes.GET("/:username", messageHandler.GetConversation)
		}

		// Realtime event stream (protected; unauthenticated channels are
		// never registered with the hub)
		apiV1.GET("/events", auth.AuthMiddleware(), messageHandler.Events)
	}

	logrus.Infof("Server is running on %s", config.AppConfig.ServerAddr)
	logrus.Fatal(router.Run(config.AppConfig.ServerAddr))
}
