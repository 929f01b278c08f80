package main

import (
	"fmt"
	"log"
	"os"

	_ "fila_dnj/docs"
	"fila_dnj/internal/auth"
	"fila_dnj/internal/config"
	"fila_dnj/internal/handlers"
	"fila_dnj/internal/models"
	"fila_dnj/internal/notify"
	"fila_dnj/internal/queue"
	"fila_dnj/internal/storage"
	"fila_dnj/internal/tasks"
	"fila_dnj/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @Title						Fila de atendimentos do evento
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Carregando .env")
		err := godotenv.Load()
		if err != nil {
			log.Fatal("Erro ao carregar o .env")
		}
	}

	db := storage.ConnectDatabase()

	if err := db.AutoMigrate(&models.QueueEntry{}, &models.CalledPerson{}, &models.QueueConfig{}); err != nil {
		log.Fatal("Erro na migração... ", err.Error())
	}

	rdb := storage.InitRedis()

	cfgStore := config.NewStore(db, rdb)
	notifier := notify.NewWhatsAppGateway(os.Getenv("WHATSAPP_WEBHOOK_URL"))
	hub := ws.NewHub()
	go hub.Run()

	svc := queue.NewService(db, cfgStore, notifier, hub)
	h := handlers.New(svc, cfgStore, hub)

	tasks.InitScheduler(svc)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/refresh", auth.RefreshToken)
	}

	api := r.Group("/api")
	{
		api.GET("/config", h.GetConfig)

		queues := api.Group("/queues")
		{
			queues.POST("/:type/join", h.JoinQueue)
			queues.GET("/:type/status/:docId", h.GetUserQueueStatus)
			queues.GET("/:type/ws", h.QueueWebSocket)
		}

		admin := api.Group("/admin", auth.AdminMiddleware())
		{
			admin.GET("/queues/:type", h.ListQueue)
			admin.POST("/queues/:type/call", h.CallNext)
			admin.DELETE("/entries/:id", h.RemoveEntry)
			admin.GET("/called", h.ListCalled)
			admin.DELETE("/called", h.ClearCalled)
			admin.GET("/called/stats", h.CalledStats)
			admin.POST("/called/:id/confirm", h.ConfirmPresence)
			admin.POST("/called/:id/no-show", h.MarkNoShow)
			admin.PUT("/config", h.UpdateConfig)
			admin.POST("/config/reset", h.ResetConfig)
			admin.GET("/ws", h.AdminWebSocket)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Erro ao iniciar o servidor...", err.Error())
	}
}
