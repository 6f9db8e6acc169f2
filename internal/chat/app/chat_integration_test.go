package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"dm_chat_service/internal/chat/domain"
	"dm_chat_service/internal/chat/repository"
	"dm_chat_service/pkg/database"
	"dm_chat_service/pkg/logger"
	"dm_chat_service/pkg/middlewares"
	testtool "dm_chat_service/pkg/test_tool"
	"dm_chat_service/pkg/token"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const wsAddr = "127.0.0.1:8082"

var chatApp *fiber.App

func TestMain(m *testing.M) {
	ctx := context.Background()
	logger.SetNewNop()

	mongoContainer, mongoHost, mongoPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:latest",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	if err != nil {
		log.Fatalf("Failed to start MongoDB container: %v", err)
	}

	redisContainer, redisHost, redisPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	if err != nil {
		log.Fatalf("Failed to start Redis container: %v", err)
	}

	mongo, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort),
		RetryCount:    5,
		RetryInterval: 5,
	}, "test_dm_chat_db")
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort),
		DB:   0,
	})

	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	sumRepo := repository.NewMongoSummaryRepository(mongo.Database)
	presenceRepo := repository.NewMongoPresenceRepository(mongo.Database)
	notify := repository.NewRedisPubSub(redisClient)

	registry := NewPresenceRegistry(presenceRepo)
	messageUC := NewMessageUseCase(convRepo)
	chatUC := NewChatListUseCase(sumRepo)
	broker := NewBrokerUseCase(messageUC, chatUC, registry, notify)
	signaling := NewSignalingUseCase(registry)
	handler := NewChatWebsocketHandler(broker, messageUC, chatUC, signaling, registry, notify)

	chatApp = fiber.New()
	chatApp.Use(middlewares.JWTMiddleware())
	chatApp.Get("/ws", websocket.New(func(c *websocket.Conn) {
		handler.HandleConnection(context.Background(), c)
	}))

	go func() {
		if err := chatApp.Listen(":8082"); err != nil {
			log.Fatalf("Failed to start WebSocket server: %v", err)
		}
	}()
	time.Sleep(2 * time.Second)

	code := m.Run()

	chatApp.Shutdown()
	mongo.Close(ctx)
	_ = mongoContainer.Terminate(ctx)
	_ = redisContainer.Terminate(ctx)

	os.Exit(code)
}

// dialAs opens an authenticated websocket connection for the identity.
func dialAs(t *testing.T, identity string) *gws.Conn {
	t.Helper()
	tok, err := token.GenerateJWT(identity, "chat_test")
	assert.NoError(t, err)

	conn, _, err := gws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?auth=%s", wsAddr, tok), nil)
	if err != nil {
		t.Fatalf("dial as %s failed: %v", identity, err)
	}
	return conn
}

func send(t *testing.T, conn *gws.Conn, req domain.WSRequest) {
	t.Helper()
	b, err := json.Marshal(req)
	assert.NoError(t, err)
	assert.NoError(t, conn.WriteMessage(gws.TextMessage, b))
}

// readUntil drains frames until one with the wanted action arrives.
// Presence and notify events from other tests' identities are skipped.
func readUntil(t *testing.T, conn *gws.Conn, action string) domain.WSResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %q: %v", action, err)
		}
		var resp domain.WSResponse
		if err := json.Unmarshal(b, &resp); err != nil {
			t.Fatalf("bad frame while waiting for %q: %v", action, err)
		}
		if resp.Action == action {
			return resp
		}
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	_, _, err := gws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", wsAddr), nil)
	assert.Error(t, err, "handshake without a token must be rejected")
}

func TestSendDeliversAndPersists(t *testing.T) {
	connA := dialAs(t, "it_alice1")
	defer connA.Close()
	connB := dialAs(t, "it_bob1")
	defer connB.Close()

	send(t, connA, domain.WSRequest{Action: string(domain.SendMessage), Peer: "it_bob1", Content: "hello bob"})

	ack := readUntil(t, connA, string(domain.SendMessage))
	assert.True(t, ack.Success)

	pushed := readUntil(t, connB, string(domain.NewMessage))
	assert.True(t, pushed.Success)
	msg := pushed.Payload["message"].(map[string]interface{})
	assert.Equal(t, "hello bob", msg["text"])
	assert.Equal(t, "it_alice1", msg["from"])

	// history holds the message for a later join
	send(t, connB, domain.WSRequest{Action: string(domain.Join), Peer: "it_alice1"})
	joined := readUntil(t, connB, string(domain.Join))
	assert.True(t, joined.Success)
	msgs := joined.Payload["messages"].([]interface{})
	assert.Len(t, msgs, 1)
}

func TestReadFlowUpdatesUnreadAndReceipts(t *testing.T) {
	connA := dialAs(t, "it_alice2")
	defer connA.Close()
	connB := dialAs(t, "it_bob2")
	defer connB.Close()

	send(t, connA, domain.WSRequest{Action: string(domain.SendMessage), Peer: "it_bob2", Content: "unread me"})
	pushed := readUntil(t, connB, string(domain.NewMessage))
	msg := pushed.Payload["message"].(map[string]interface{})
	key := pushed.Payload["conversation_key"].(string)

	send(t, connB, domain.WSRequest{Action: string(domain.ListChats)})
	listed := readUntil(t, connB, string(domain.ListChats))
	chats := listed.Payload["chats"].([]interface{})
	assert.Len(t, chats, 1)
	assert.Equal(t, float64(1), chats[0].(map[string]interface{})["unread_count"])

	send(t, connB, domain.WSRequest{
		Action:          string(domain.ReadMessage),
		ConversationKey: key,
		MessageID:       msg["id"].(string),
	})
	ack := readUntil(t, connB, string(domain.ReadMessage))
	assert.True(t, ack.Success)
	assert.Equal(t, true, ack.Payload["changed"])

	receipt := readUntil(t, connA, string(domain.ReadReceipt))
	assert.Equal(t, "it_bob2", receipt.Payload["reader"])
	assert.Equal(t, msg["id"], receipt.Payload["message_id"])

	send(t, connB, domain.WSRequest{Action: string(domain.ListChats)})
	listed = readUntil(t, connB, string(domain.ListChats))
	chats = listed.Payload["chats"].([]interface{})
	assert.Equal(t, float64(0), chats[0].(map[string]interface{})["unread_count"])
}

func TestDeleteForEveryonePropagates(t *testing.T) {
	connA := dialAs(t, "it_alice3")
	defer connA.Close()
	connB := dialAs(t, "it_bob3")
	defer connB.Close()

	send(t, connA, domain.WSRequest{Action: string(domain.SendMessage), Peer: "it_bob3", Content: "retract me"})
	pushed := readUntil(t, connB, string(domain.NewMessage))
	msg := pushed.Payload["message"].(map[string]interface{})
	key := pushed.Payload["conversation_key"].(string)

	send(t, connA, domain.WSRequest{
		Action:          string(domain.DeleteMessage),
		ConversationKey: key,
		MessageID:       msg["id"].(string),
		ForEveryone:     true,
	})
	ack := readUntil(t, connA, string(domain.DeleteMessage))
	assert.True(t, ack.Success)
	assert.Equal(t, "deleted", ack.Payload["outcome"])

	gone := readUntil(t, connB, string(domain.MessageDeleted))
	assert.Equal(t, msg["id"], gone.Payload["message_id"])

	send(t, connB, domain.WSRequest{Action: string(domain.Join), Peer: "it_alice3"})
	joined := readUntil(t, connB, string(domain.Join))
	msgs, ok := joined.Payload["messages"].([]interface{})
	if ok {
		assert.Empty(t, msgs)
	}
}

func TestNotifyChannelCarriesBadgeEvent(t *testing.T) {
	connB := dialAs(t, "it_bob4")
	defer connB.Close()
	connA := dialAs(t, "it_alice4")
	defer connA.Close()

	send(t, connA, domain.WSRequest{Action: string(domain.SendMessage), Peer: "it_bob4", Content: "badge"})

	notify := readUntil(t, connB, string(domain.NotifyMessage))
	assert.Equal(t, "it_alice4", notify.Payload["from"])
	assert.NotEmpty(t, notify.Payload["message_id"])
}

func TestSignalingRelayBetweenPeers(t *testing.T) {
	connA := dialAs(t, "it_alice5")
	defer connA.Close()
	connB := dialAs(t, "it_bob5")
	defer connB.Close()

	send(t, connA, domain.WSRequest{
		Action:  string(domain.SignalOffer),
		Peer:    "it_bob5",
		Payload: json.RawMessage(`{"sdp":"v=0"}`),
	})
	ack := readUntil(t, connA, string(domain.SignalOffer))
	assert.True(t, ack.Success)

	offer := readUntil(t, connB, string(domain.SignalOffer))
	assert.Equal(t, "it_alice5", offer.Payload["from"])
}
