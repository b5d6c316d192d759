package main

import (
	"log"
	"net/http"

	"invitedesk/internal/bot"
	"invitedesk/internal/config"
	"invitedesk/internal/database"
	"invitedesk/internal/server"
	"invitedesk/internal/store"
	"invitedesk/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}

	users := store.NewUserStore(db)
	chats := store.NewChatStore(db)
	members := store.NewMembershipStore(db)

	// Telegram watcher bot
	watcher, err := bot.NewWatcher(cfg.BotToken, users, chats, members)
	if err != nil {
		log.Fatalf("Could not create bot: %v", err)
	}
	go watcher.Start()

	// Background reconciliation
	reconciler := worker.NewReconciler(chats, members, rdb, watcher.Instance, cfg.AdminChatID)
	go reconciler.Start()

	// Backend API
	actions := &bot.Actions{Bot: watcher.Instance}
	ledger := server.NewRedisLedger(rdb)
	api := server.New(users, members, actions, ledger)

	log.Printf("API listening on %s", cfg.APIAddr)
	if err := http.ListenAndServe(cfg.APIAddr, api.Router(cfg.JWTSecret)); err != nil {
		log.Fatalf("API server stopped: %v", err)
	}
}
