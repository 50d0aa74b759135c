package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"convsync/internal/auth"
	"convsync/internal/config"
	"convsync/internal/rest"
	"convsync/internal/sync"
	"convsync/internal/transport"
	"convsync/internal/wire"
	"convsync/pkg/logger"
)

// syncbot connects to a chat server, subscribes to the caller's
// conversations, and logs every inbound event. It exists to exercise the
// sync engine end to end against a real server.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Server.Environment)
	defer appLogger.Logger.Sync()

	claims, err := auth.DecodeClaims(cfg.Server.AccessToken)
	if err != nil {
		log.Fatalf("Invalid access token: %v", err)
	}
	appLogger.Infof("starting syncbot as user %s", claims.UserID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiClient := rest.NewClient(cfg.Server.APIBaseURL, cfg.Server.AccessToken, cfg.Sync.RequestTimeout)

	var conn *transport.Conn
	coordinator := sync.NewCoordinator(ctx, sync.Options{
		LocalUserID:       claims.UserID,
		DedupWindow:       cfg.Sync.DedupWindow,
		DefaultChunkBytes: cfg.Sync.DefaultChunkBytes,
		ParticipantExpiry: cfg.Sync.ParticipantExpiry,
		OnReaction: func(p wire.ReactionPayload) {
			appLogger.Infof("reaction %s from %s in %s", p.ReactionType, p.Identity, p.ConversationID)
		},
		OnCallInvite: func(p wire.CallInvitePayload) {
			appLogger.Infof("call invite from %s in %s", p.CallerID, p.ConversationID)
		},
	}, apiClient, senderFunc{getConn: func() *transport.Conn { return conn }}, appLogger)
	defer coordinator.Dispose()

	conn, err = transport.Dial(ctx, transport.Options{
		URL:          cfg.Server.WebSocketURL,
		AccessToken:  cfg.Server.AccessToken,
		SendBuffer:   cfg.Sync.SendChannelBuffer,
		WriteTimeout: cfg.Sync.WriteTimeout,
		PingInterval: cfg.Sync.PingInterval,
	}, coordinator.HandleFrame, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if err := coordinator.Conversations().Load(ctx); err != nil {
		appLogger.Errorf("initial conversation load failed: %v", err)
	}
	for _, c := range coordinator.Conversations().Conversations() {
		appLogger.Infof("conversation %s (%s), %d unseen", c.ID, c.Title, c.UnseenCount)
	}

	if err := conn.Run(ctx); err != nil && ctx.Err() == nil {
		appLogger.Errorf("connection closed: %v", err)
	}
	appLogger.Infof("syncbot stopped")
}

// senderFunc defers to the connection established after the coordinator is
// built; the two reference each other.
type senderFunc struct {
	getConn func() *transport.Conn
}

func (s senderFunc) SendFrame(f wire.Frame) error {
	return s.getConn().SendFrame(f)
}

func (s senderFunc) SendBinary(data []byte) error {
	return s.getConn().SendBinary(data)
}
