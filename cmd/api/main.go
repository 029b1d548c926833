package main

import (
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"soruhub/internal/auth"
	"soruhub/internal/db"
	"soruhub/internal/domain/questions"
	"soruhub/internal/domain/storage"
	"soruhub/internal/mailer"
	"soruhub/internal/notifications"
	"soruhub/internal/payments"
	"soruhub/internal/ratelimiter"

	"github.com/9ssi7/exponent"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	// Default values
	defaultRequests := 200
	defaultEnabled := false

	// Retrieve request count with error handling
	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	// Retrieve enabled flag with error handling
	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder // This adds color to log levels (INFO, WARN, ERROR)

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)

	return logger.Sugar(), nil
}

// dedupeWindow reads the notification guard window from the environment,
// falling back to the library default when unset or malformed.
func dedupeWindow() time.Duration {
	val, exists := os.LookupEnv("NOTIFICATION_DEDUPE_WINDOW")
	if !exists {
		return notifications.DefaultGuardWindow
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		fmt.Println("Invalid NOTIFICATION_DEDUPE_WINDOW, defaulting to", notifications.DefaultGuardWindow)
		return notifications.DefaultGuardWindow
	}
	return dur
}

var version = "0.3.0"

//	@title			Soruhub API
//	@description	API for Soruhub, a tutoring platform where students submit questions and coaches answer them.

//	@contact.name	API Support
//	@contact.email	destek@soruhub.app

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}
	// Retrieve and convert maxOpenConns
	maxOpenConnsStr := os.Getenv("DB_MAX_OPEN_CONNS")
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		log.Fatalf("Invalid value for DB_MAX_OPEN_CONNS: %v", err)
	}

	cfg := config{
		addr:        os.Getenv("ADDR"),
		env:         os.Getenv("ENV"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		apiURL:      os.Getenv("EXTERNAL_URL"),
		db: dbConfig{
			addr:         os.Getenv("DB_ADDR"),
			maxOpenConns: int32(maxOpenConns),
			maxIdleTime:  os.Getenv("DB_MAX_IDLE_TIME"),
		},
		mail: mailConfig{
			exp:       time.Hour * 24 * 3, //3 days
			fromEmail: os.Getenv("MAIL_FROM_EMAIL"),
			mailtrap: mailTrapConfig{
				apiKey: os.Getenv("MAILTRAP_API_KEY"),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				refreshSecret:   os.Getenv("AUTH_TOKEN_REFRESH_SECRET"),
				secret:          os.Getenv("AUTH_TOKEN_SECRET"),
				accessTokenExp:  time.Hour * 24 * 3, // 3 days
				refreshTokenExp: time.Hour * 24 * 9, // 9 days
				iss:             "Soruhub",
			},
		},
		push: pushConfig{
			dedupeWindow: dedupeWindow(),
			fcmServerKey: os.Getenv("FCM_SERVER_KEY"),
		},
		payment: paymentConfig{
			iyzicoAPIKey:    os.Getenv("IYZICO_API_KEY"),
			iyzicoSecretKey: os.Getenv("IYZICO_SECRET_KEY"),
			callbackURL:     os.Getenv("IYZICO_CALLBACK_URL"),
			isProduction:    os.Getenv("ENV") == "production",
		},
		rateLimiter: LoadRateLimiterConfig(),
	}

	// Logger
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	pool, err := db.New(
		cfg.db.addr,
		cfg.db.maxOpenConns,
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Fatal(err)
	}

	defer pool.Close()
	logger.Info("database connection pool established")

	//storage
	store := storage.NewContainer(pool)

	//cloudinary
	cloudinaryUrl := os.Getenv("CLOUDINARY_URL")
	cld, err := cloudinary.NewFromURL(cloudinaryUrl)
	if err != nil {
		logger.Fatal(err)
	}

	// client to send email for activation
	mailtrap, err := mailer.NewMailTrapClient(cfg.mail.mailtrap.apiKey, cfg.mail.fromEmail)
	if err != nil {
		logger.Fatal(err)
	}

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.refreshSecret,
		cfg.auth.token.secret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
	)

	// Push providers. Expo handles the app-store builds, FCM catches raw
	// device tokens from the Android web wrapper.
	expoPush := notifications.NewExpoAdapter(new(exponent.Client))
	providers := []notifications.Provider{
		notifications.NewExpoProvider(expoPush),
	}
	if cfg.push.fcmServerKey != "" {
		providers = append(providers, notifications.NewFCMProvider(cfg.push.fcmServerKey))
	}

	dedupe := notifications.NewDeduplicator(cfg.push.dedupeWindow)
	dispatcher := notifications.NewDispatcher(dedupe, providers, store.PushTokens, store.Notifications, logger)
	tokenValidator := notifications.NewTokenValidator(providers, store.PushTokens, logger)

	// Chat sessions coordinate claims over an in-process bus. Replicas
	// would plug a shared transport into the same interface.
	coordinator := notifications.NewCoordinator(notifications.NewInMemoryBus(), 0)
	defer coordinator.Close()

	// Payments
	paymentManager := payments.NewPaymentManager()
	paymentManager.RegisterGateway("iyzico", payments.NewIyzicoAdapter(
		cfg.payment.iyzicoAPIKey,
		cfg.payment.iyzicoSecretKey,
		cfg.payment.callbackURL,
		cfg.payment.isProduction,
	))

	// Question codes
	questionCodes, err := questions.NewCodeGenerator(os.Getenv("QUESTION_CODE_SALT"))
	if err != nil {
		logger.Fatal(err)
	}

	app := &application{
		config:         cfg,
		logger:         logger,
		store:          store,
		cld:            cld,
		mailer:         mailtrap,
		authenticator:  jwtAuthenticator,
		rateLimiter:    rateLimiter,
		dispatcher:     dispatcher,
		coordinator:    coordinator,
		tokenValidator: tokenValidator,
		payments:       paymentManager,
		questionCodes:  questionCodes,
	}

	app.expireLapsedSubscriptionsEveryHour()
	app.validatePushTokensDaily()

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		return pool.Stat()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
