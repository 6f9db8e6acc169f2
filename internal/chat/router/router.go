package router

import (
	"context"

	chatapp "dm_chat_service/internal/chat/app"
	mediaapp "dm_chat_service/internal/media/app"
	"dm_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes wires the websocket endpoint and the media REST API.
// Every route sits behind the JWT middleware.
func RegisterRoutes(r *fiber.App, chatWebsocket *chatapp.ChatWebsocketHandler, media *mediaapp.MediaHandler) {
	r.Use(middlewares.JWTMiddleware())

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	r.Post("/media", media.Upload)
	r.Get("/media", media.Resolve)
}
