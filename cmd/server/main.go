package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"goodies-auth/internal/config"
	"goodies-auth/internal/db"
	"goodies-auth/internal/devotp"
	devotphandler "goodies-auth/internal/devotp/handler"
	"goodies-auth/internal/gateway"
	"goodies-auth/internal/gateway/vonage"
	"goodies-auth/internal/logging"
	otpservice "goodies-auth/internal/otp/service"
	"goodies-auth/internal/security"
	"goodies-auth/internal/server"
	sessioncache "goodies-auth/internal/session/cache"
	sessionrepo "goodies-auth/internal/session/repository"
	sessionservice "goodies-auth/internal/session/service"
	"goodies-auth/internal/telemetry"
	telemetryotel "goodies-auth/internal/telemetry/otel"
	"goodies-auth/internal/telemetry/producer"
	userrepo "goodies-auth/internal/user/repository"
	verificationrepo "goodies-auth/internal/verification/repository"
	"goodies-auth/internal/verification/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer conn.Close()

	ctx := context.Background()
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal("otel", zap.Error(err))
	}
	providers.SetGlobal()

	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuthEventsTopic)
	emitters := telemetry.Multi{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		logger.Info("auth events streaming to kafka", zap.String("topic", cfg.AuthEventsTopic))
	}

	var (
		rdb          *redis.Client
		redisCache   *sessioncache.RedisCache
		sessionCache sessionservice.Cache
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisCache = sessioncache.NewRedisCache(rdb, cfg.SessionCacheTTLDuration())
		sessionCache = redisCache
	}

	var (
		gw      gateway.Gateway
		devHand *devotphandler.Server
	)
	if cfg.DevOTP {
		store := devotp.NewMemoryStore()
		gw = devotp.NewGateway(store, cfg.OTPCodeLength, logger)
		devHand = devotphandler.NewServer(store)
		logger.Warn("dev OTP enabled: codes are readable through DevService.GetOTP")
	} else {
		if cfg.VonageAPIKey == "" || cfg.VonageAPISecret == "" {
			logger.Fatal("VONAGE_API_KEY and VONAGE_API_SECRET are required unless DEV_OTP=true")
		}
		gw = vonage.NewClient(cfg.VonageAPIKey, cfg.VonageAPISecret, cfg.VonageBaseURL, cfg.VonageBrand, cfg.OTPCodeLength)
	}

	requests := verificationrepo.NewPostgresRepository(conn)
	sessions := sessionservice.NewService(sessionrepo.NewPostgresRepository(conn), sessionCache, logger.Named("session"))
	authSvc := otpservice.NewService(
		otpservice.Config{
			OutstandingWindow: cfg.OutstandingWindow(),
			ValidityWindow:    cfg.ValidityWindow(),
			GatewayTimeout:    cfg.GatewayTimeoutDuration(),
		},
		requests,
		userrepo.NewPostgresRepository(conn),
		sessions,
		otpservice.NewPostgresTransactor(conn, sessions),
		gw,
		security.NewHasher(cfg.BcryptCost),
		emitters,
		logger.Named("otp"),
	)

	var scheduler *sweeper.Scheduler
	if cfg.SweepSchedule != "" {
		scheduler = sweeper.NewScheduler(logger.Named("sweeper"))
		job := sweeper.NewJob(requests, cfg.OutstandingWindow(), cfg.ValidityWindow(), logger.Named("sweeper"))
		if err := scheduler.Add(job, cfg.SweepSchedule); err != nil {
			logger.Fatal("sweeper", zap.Error(err))
		}
		scheduler.Start(ctx)
	}

	deps := server.Deps{
		Auth:         authSvc,
		Sessions:     sessions,
		HealthPinger: conn,
		Emitter:      emitters,
		Logger:       logger,
	}
	if redisCache != nil {
		deps.HealthCachePinger = redisCache
	}
	if devHand != nil {
		deps.DevOTPHandler = devHand
	}
	s := server.NewServer(deps)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
	defer lis.Close()

	go func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := s.Serve(lis); err != nil {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down gRPC server")
	s.GracefulStop()
	if scheduler != nil {
		scheduler.Stop()
	}
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdown(logger, providers, kafkaProducer, rdb)
	logger.Info("gRPC server stopped")
}

func shutdown(logger *zap.Logger, providers *telemetryotel.Providers, kp producer.Producer, rdb *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(ctx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	if err := kp.Close(); err != nil {
		logger.Warn("kafka close", zap.Error(err))
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn("redis close", zap.Error(err))
		}
	}
}
