package main

import (
	"context"
	"time"
)

// background runs fn on its own goroutine with panic recovery, so a push or
// email hiccup can never take a request handler down with it. The context is
// detached from the request and bounded to 30 seconds.
func (app *application) background(fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				app.logger.Errorw("background job panicked", "error", err)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fn(ctx)
	}()
}

func (app *application) expireLapsedSubscriptionsEveryHour() {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		run := func() {
			n, err := app.store.Subscriptions.ExpireLapsed(context.Background())
			if err != nil {
				app.logger.Errorf("Error expiring lapsed subscriptions: %v", err)
			} else if n > 0 {
				app.logger.Infof("Expired %d lapsed subscriptions at %s", n, time.Now().Format(time.RFC1123))
			}
		}

		// Run once immediately
		run()

		// Then run every hour
		for range ticker.C {
			run()
		}
	}()
}

func (app *application) validatePushTokensDaily() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			removed, err := app.tokenValidator.ValidateAll(context.Background())
			if err != nil {
				app.logger.Errorf("Error validating push tokens: %v", err)
			} else {
				app.logger.Infof("Push token sweep removed %d dead tokens", removed)
			}
		}
	}()
}
