package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	chatapp "dm_chat_service/internal/chat/app"
	"dm_chat_service/internal/chat/repository"
	"dm_chat_service/internal/chat/router"
	mediaapp "dm_chat_service/internal/media/app"
	"dm_chat_service/pkg/config"
	"dm_chat_service/pkg/database"
	"dm_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.DMChat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval),
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.Bucket,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect minio err : %v", err))
	}

	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	sumRepo := repository.NewMongoSummaryRepository(mongo.Database)
	presenceRepo := repository.NewMongoPresenceRepository(mongo.Database)
	notify := repository.NewRedisPubSub(redisClient)

	registry := chatapp.NewPresenceRegistry(presenceRepo)
	messageUC := chatapp.NewMessageUseCase(convRepo)
	chatUC := chatapp.NewChatListUseCase(sumRepo)
	broker := chatapp.NewBrokerUseCase(messageUC, chatUC, registry, notify)
	signaling := chatapp.NewSignalingUseCase(registry)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		chatapp.NewChatWebsocketHandler(broker, messageUC, chatUC, signaling, registry, notify),
		mediaapp.NewMediaHandler(mediaapp.NewMediaUseCase(minioClient)),
	)

	port := ":" + cfg.Port
	log.Printf("DM Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
