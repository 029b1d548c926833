package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soruhub/docs" //this is required to generate swagger docs
	"soruhub/internal/auth"
	"soruhub/internal/domain/questions"
	"soruhub/internal/domain/storage"
	"soruhub/internal/mailer"
	"soruhub/internal/notifications"
	"soruhub/internal/payments"
	"soruhub/internal/ratelimiter"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config         config
	store          *storage.Container
	logger         *zap.SugaredLogger
	cld            *cloudinary.Cloudinary
	mailer         mailer.Client
	authenticator  auth.Authenticator
	rateLimiter    ratelimiter.Limiter
	dispatcher     *notifications.Dispatcher
	coordinator    *notifications.Coordinator
	tokenValidator *notifications.TokenValidator
	payments       *payments.PaymentManager
	questionCodes  *questions.CodeGenerator
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	mail        mailConfig
	frontendURL string
	auth        authConfig
	push        pushConfig
	payment     paymentConfig
	rateLimiter ratelimiter.Config
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}
type tokenConfig struct {
	refreshSecret   string
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}
type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	exp       time.Duration
	fromEmail string
	mailtrap  mailTrapConfig
}

type mailTrapConfig struct {
	apiKey string
}

type dbConfig struct {
	addr         string
	maxOpenConns int32
	maxIdleTime  string
}

type pushConfig struct {
	dedupeWindow time.Duration
	fcmServerKey string
}

type paymentConfig struct {
	iyzicoAPIKey    string
	iyzicoSecretKey string
	callbackURL     string
	isProduction    bool
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		// Public routes
		r.Route("/authentication", func(r chi.Router) {
			r.Post("/user", app.registerUserHandler)
			r.Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
		})

		r.Put("/users/activate/{token}", app.activateUserHandler)

		// iyzico posts here after the hosted checkout page, no bearer token
		r.Post("/subscriptions/callback", app.paymentCallbackHandler)

		r.Route("/users", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Put("/", app.updateUserHandler)
			r.Post("/profile-picture", app.uploadProfilePictureHandler)
			r.Post("/logout", app.logoutHandler)

			r.Route("/push-tokens", func(r chi.Router) {
				r.Post("/", app.savePushTokenHandler)
				r.Delete("/", app.removePushTokenHandler)
				r.With(app.RequireRole("admin")).Post("/bulk-remove", app.bulkRemoveTokensHandler)
				r.With(app.RequireRole("admin")).Post("/prune", app.pruneStaleTokensHandler)
				r.With(app.RequireRole("admin")).Post("/validate", app.validatePushTokensHandler)
			})
		})

		r.Route("/questions", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/", app.submitQuestionHandler)
			r.Get("/", app.listMyQuestionsHandler)
			r.With(app.RequireRole("coach")).Get("/pending", app.listPendingQuestionsHandler)
			r.Route("/{questionID}", func(r chi.Router) {
				r.Get("/", app.getQuestionHandler)
				r.With(app.RequireRole("coach")).Post("/claim", app.claimQuestionHandler)
				r.With(app.RequireRole("coach")).Post("/answer", app.answerQuestionHandler)
			})
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/", app.openConversationHandler)
			r.Route("/{conversationID}", func(r chi.Router) {
				r.Get("/messages", app.listMessagesHandler)
				r.Post("/messages", app.sendMessageHandler)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/send", app.sendNotificationHandler)
			r.Get("/", app.listNotificationsHandler)
			r.Get("/unread-count", app.unreadCountHandler)
			r.Patch("/{notificationID}/read", app.markNotificationReadHandler)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/me", app.mySubscriptionHandler)
			r.Post("/checkout", app.initiateCheckoutHandler)
			r.Post("/verify", app.verifyPaymentHandler)
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
