package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/oksasatya/newsletter/config"
	"github.com/oksasatya/newsletter/internal/container"
	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/pkg/helpers"
)

var demoSubscribers = []struct {
	Email   string
	Name    string
	Confirm bool
}{
	{Email: "ada@example.com", Name: "Ada Lovelace", Confirm: true},
	{Email: "grace@example.com", Name: "Grace Hopper", Confirm: true},
	{Email: "alan@example.com", Name: "Alan Turing", Confirm: false},
}

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c, err := container.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	defer c.Close()

	for _, d := range demoSubscribers {
		id, err := seed(ctx, c, d.Email, d.Name, d.Confirm)
		if err != nil {
			log.Fatalf("failed to seed %s: %v", d.Email, err)
		}
		fmt.Printf("seeded subscriber: id=%s email=%s name=%q confirmed=%t\n", id, d.Email, d.Name, d.Confirm)
	}

	if c.JWT == nil {
		fmt.Println("PUBLISHER_JWT_SECRET is empty; publishing is unauthenticated")
		return
	}
	token, exp, err := c.JWT.Generate(helpers.PublisherSubject)
	if err != nil {
		log.Fatalf("failed to sign publisher token: %v", err)
	}
	fmt.Printf("publisher token (expires %s):\n%s\n", exp.Format(time.RFC3339), token)
}

// seed registers the address unless it already exists and optionally
// confirms it. Running it twice leaves the same rows.
func seed(ctx context.Context, c *container.Container, email, name string, confirm bool) (uuid.UUID, error) {
	existing, err := c.SubscriberRepo.FindByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	if existing != nil {
		id = existing.ID()
	} else if err := c.Subscribers.Execute(ctx, subscriber.RegisterSubscriber{ID: id, Email: email, Name: name}); err != nil {
		return uuid.Nil, err
	}
	if !confirm {
		return id, nil
	}
	err = c.Subscribers.Execute(ctx, subscriber.ConfirmSubscription{ID: id})
	if err != nil && !errors.Is(err, subscriber.ErrInvalidSubscriberStatus) {
		return uuid.Nil, err
	}
	return id, nil
}
