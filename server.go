package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"messenger/api/middleware"
	"messenger/api/routes"
	"messenger/config"
	"messenger/db"
	"messenger/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log.Println("Starting server...")

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	// Redis и RabbitMQ опциональны: без них нет счетчиков и уведомлений,
	// но переписка работает
	if err := services.InitRedis(); err != nil {
		log.Printf("Warning: Redis unavailable, unread counters disabled: %v", err)
	}
	defer services.CloseRedis()

	if err := services.InitRabbitMQ(); err != nil {
		log.Printf("Warning: RabbitMQ unavailable, notifications disabled: %v", err)
	} else {
		defer services.CloseRabbitMQ()
		if err := services.StartNotificationConsumer(context.Background(), "message_notifications"); err != nil {
			log.Printf("Warning: failed to start notification consumer: %v", err)
		}
	}

	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware("messenger"))

	routes.PublicApi(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := ":8080"
	if config.AppConfig.Backend.Port != 0 {
		addr = fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	}

	// Start the server
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
