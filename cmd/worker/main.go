package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/hanzhang719/mindline/internal/config"
	"github.com/hanzhang719/mindline/internal/email"
	"github.com/hanzhang719/mindline/internal/store/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	if cfg.CareTeamEmail == "" {
		log.Fatalf("CARE_TEAM_EMAIL is required for the alert worker")
	}

	smtp := email.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, nil)
	if err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("alert worker started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var alert rabbitmq.AlertMessage
				if err := json.Unmarshal(d.Body, &alert); err != nil || alert.UserID == 0 {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := notifyCareTeam(smtp, cfg.CareTeamEmail, alert); err != nil {
					log.Printf("worker=%d alert user=%d session=%s failed cost=%s err=%v",
						workerID, alert.UserID, alert.SessionID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed user=%d err=%v", workerID, alert.UserID, err)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed, waiting for shutdown")
				msgs = nil
				continue
			}
			jobs <- d
		}
	}
}

// notifyCareTeam relays the classification only; transcripts stay on the
// chat server.
func notifyCareTeam(smtp email.SMTPConfig, to string, alert rabbitmq.AlertMessage) error {
	subject := fmt.Sprintf("[%s] Risk escalation for %s", alert.Status, alert.Name)
	body := fmt.Sprintf(
		"A conversation risk evaluation escalated.\n\n"+
			"User: %s <%s> (id %d)\n"+
			"Session: %s\n"+
			"Assessment: %s\n"+
			"Raised at: %s\n\n"+
			"Please follow the outreach protocol.\n",
		alert.Name, alert.Email, alert.UserID,
		alert.SessionID,
		alert.Label,
		alert.RaisedAt.Format(time.RFC3339),
	)
	return email.SendText(smtp, to, subject, body)
}
