package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/patient-api/internal/config"
	"github.com/jwalitptl/patient-api/internal/email"
	"github.com/jwalitptl/patient-api/internal/handler"
	"github.com/jwalitptl/patient-api/internal/handler/patient"
	"github.com/jwalitptl/patient-api/internal/middleware"
	"github.com/jwalitptl/patient-api/internal/repository/postgres"
	"github.com/jwalitptl/patient-api/internal/router"
	doctorService "github.com/jwalitptl/patient-api/internal/service/doctor"
	eventService "github.com/jwalitptl/patient-api/internal/service/event"
	"github.com/jwalitptl/patient-api/internal/service/invitation"
	patientService "github.com/jwalitptl/patient-api/internal/service/patient"
	"github.com/jwalitptl/patient-api/pkg/auth"
	"github.com/jwalitptl/patient-api/pkg/logger"
	"github.com/jwalitptl/patient-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "failed to load configuration")
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	})

	if cfg.JWT.Secret == "" {
		log.Fatal(errors.New("jwt.secret is empty"), "refusing to start without a JWT secret")
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(cfg.Server.MetricsPrefix)
	if err := appMetrics.Register(registry); err != nil {
		log.Fatal(err, "failed to register metrics")
	}

	// Initialize repositories
	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))

	// Email delivery
	var sender email.Sender
	if cfg.SMTP.Host == "" {
		log.Warn("smtp.host is empty, invitations will only be logged")
		sender = email.NewLogSender(log)
	} else {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	// Initialize services
	eventSvc := eventService.NewService(outboxRepo)
	doctorSvc := doctorService.NewService(doctorRepo, cfg.DoctorCache.TTL, cfg.DoctorCache.CleanupInterval, log)
	dispatcher := invitation.NewDispatcher(sender, cfg.App.URL)
	notifier := invitation.NewAsyncNotifier(dispatcher, eventSvc, appMetrics, log)
	patientSvc := patientService.NewService(patientService.Deps{
		Repo:       patientRepo,
		Doctors:    doctorSvc,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Events:     eventSvc,
		Metrics:    appMetrics,
		Logger:     log,
	})

	// Initialize middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer))
	h := handler.NewHandler(db, registry)
	patientHandler := patient.NewHandler(patientSvc)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	corsConfig.AllowCredentials = cfg.CORS.AllowCredentials
	corsConfig.MaxAge = cfg.CORS.MaxAge

	r, err := router.NewRouter(authMiddleware, patientHandler, h, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        cfg.RateLimit.RPS,
		RateBurst:        cfg.RateLimit.Burst,
		RequestTimeout:   cfg.Server.RequestTimeout,
		CORSConfig:       corsConfig,
		MetricsPrefix:    cfg.Server.MetricsPrefix,
		Registerer:       registry,
		Logger:           log,
	})
	if err != nil {
		log.Fatal(err, "failed to create router")
	}
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	// Let in-flight invitation emails finish.
	done := make(chan struct{})
	go func() {
		notifier.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("timed out waiting for invitation dispatches")
	}

	log.Info("server exited properly")
}
