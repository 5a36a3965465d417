package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dojolist/dojolist-engine/internal/app"
	"github.com/dojolist/dojolist-engine/internal/notify"
)

// The engine is a library first; this binary runs it standalone, tailing
// every change feed to the log until interrupted. Useful against a live
// store pair for smoke-testing backend configuration.
func main() {
	a, err := app.New(app.LoadConfig(), nil)
	if err != nil {
		fmt.Printf("failed to initialize engine: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	subs := []*notify.Subscription{
		a.Services.Feeds.SubscribeToProgramChanges(),
		a.Services.Feeds.SubscribeToEnrollmentChanges(),
		a.Services.Feeds.SubscribeToProgressChanges(),
		a.Services.Feeds.SubscribeToRankProgressChanges(),
	}
	defer func() {
		for _, sub := range subs {
			a.Services.Feeds.Unsubscribe(sub)
		}
	}()

	for _, sub := range subs {
		go func(sub *notify.Subscription) {
			for ev := range sub.Events() {
				a.Log.Info("change event", "kind", ev.Kind, "type", ev.Type)
			}
		}(sub)
	}

	a.Log.Info("engine running",
		"primaryBackend", a.Cfg.Primary.Backend,
		"secondaryBackend", a.Cfg.Secondary.Backend)
	<-ctx.Done()
	a.Log.Info("shutting down")
}
