package main

import (
	"log"

	"github.com/hanzhang719/mindline/internal/config"
	"github.com/hanzhang719/mindline/internal/db"
	"github.com/hanzhang719/mindline/internal/httpapi"
	"github.com/hanzhang719/mindline/internal/models"
	"github.com/hanzhang719/mindline/internal/store/rabbitmq"
	"github.com/hanzhang719/mindline/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	if err := gdb.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()

	// The chat path works without the broker; alerts simply don't go out.
	alerts, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Printf("risk alerts disabled, rabbit dial: %v", err)
		alerts = nil
	} else {
		defer alerts.Close()
	}

	r := httpapi.NewRouter(gdb, cfg, rds, alerts)

	log.Printf("server listening on %s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
