package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/ai"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/appointments"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/auth"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/cache"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/cases"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/catalog"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/config"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/db"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/metrics"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/middleware"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/notifications"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/otp"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/payment"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/referral"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/report"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected")
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	var leaderboard cache.Leaderboard = cache.NewNoop()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		cacheStore = redisCache
		leaderboard = redisCache
	}

	jwtManager := &auth.Manager{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
		Issuer:     "talktodoc-backend",
	}

	brevo := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox)
	var accountsMailer accounts.Mailer
	var appointmentsMailer appointments.Mailer
	if brevo != nil {
		accountsMailer = brevo
		appointmentsMailer = brevo
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	} else {
		logger.Info("brevo mailer disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	val := validation.New()
	otpStore := otp.NewStore(cacheStore, time.Duration(cfg.OTPTTLMinutes)*time.Minute)

	accountsRepo := accounts.NewRepository(cols.Accounts)
	accountsService := accounts.NewService(accountsRepo, jwtManager, otpStore, accountsMailer, logger)
	accountsHandler := accounts.NewHandler(accountsService, val, logger)

	hospitalsRepo := catalog.NewRepository[catalog.Hospital](cols.Hospitals)
	specialtiesRepo := catalog.NewRepository[catalog.Specialty](cols.Specialties)
	pharmaciesRepo := catalog.NewRepository[catalog.Pharmacy](cols.Pharmacies)
	doctorLevelsRepo := catalog.NewRepository[catalog.DoctorLevel](cols.DoctorLevels)
	medicinesRepo := catalog.NewRepository[catalog.Medicine](cols.Medicines)

	hospitalsHandler := catalog.NewHandler("hospital", hospitalsRepo, val, logger, catalog.BuildHospital, catalog.SetHospital)
	specialtiesHandler := catalog.NewHandler("specialty", specialtiesRepo, val, logger, catalog.BuildSpecialty, catalog.SetSpecialty)
	pharmaciesHandler := catalog.NewHandler("pharmacy", pharmaciesRepo, val, logger, catalog.BuildPharmacy, catalog.SetPharmacy)
	doctorLevelsHandler := catalog.NewHandler("doctor level", doctorLevelsRepo, val, logger, catalog.BuildDoctorLevel, catalog.SetDoctorLevel)
	medicinesHandler := catalog.NewHandler("medicine", medicinesRepo, val, logger, catalog.BuildMedicine, catalog.SetMedicine)

	appointmentsRepo := appointments.NewRepository(cols.Appointments)
	appointmentsService := appointments.NewService(
		appointmentsRepo,
		accountsRepo,
		doctorLevelsRepo,
		specialtiesRepo,
		appointmentsMailer,
		m,
		cfg.Timezone,
		logger,
	)
	appointmentsHandler := appointments.NewHandler(appointmentsService, val, logger)

	casesRepo := cases.NewRepository(cols.Cases)
	casesService := cases.NewService(casesRepo, medicinesRepo, logger)
	casesHandler := cases.NewHandler(casesService, val, logger)

	vnpayCfg := payment.VNPayConfig{
		TmnCode:    cfg.VNPayTmnCode,
		HashSecret: cfg.VNPayHashSecret,
		PayURL:     cfg.VNPayPayURL,
		ReturnURL:  cfg.VNPayReturnURL,
	}
	ordersRepo := payment.NewOrderRepository(cols.Orders)
	transactionsRepo := payment.NewTransactionRepository(cols.Transactions)
	paymentService := payment.NewService(vnpayCfg, ordersRepo, transactionsRepo, appointmentsService, m, cfg.Timezone, logger)
	paymentHandler := payment.NewHandler(paymentService, val, logger)

	reportRepo := report.NewRepository(cols.Accounts, cols.Appointments, cols.Transactions)
	reportService := report.NewService(reportRepo, cacheStore, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)
	reportHandler := report.NewHandler(reportService, logger)

	referralService := referral.NewService(accountsRepo, leaderboard, logger)

	var suggester ai.Suggester
	if cfg.GeminiAPIKey != "" {
		triage, err := ai.NewTriage(ctx, cfg.GeminiAPIKey, "")
		if err != nil {
			logger.Error("gemini client failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer triage.Close()
		suggester = triage
		logger.Info("triage enabled")
	} else {
		logger.Info("triage disabled")
	}
	triageHandler := ai.NewHandler(suggester, specialtiesRepo, val, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(m.Middleware)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	authLimiter := middleware.NewRateLimiter(cfg.RateLimitAuth, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	paymentLimiter := middleware.NewRateLimiter(cfg.RateLimitPayment, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(authRt chi.Router) {
			authRt.With(authLimiter.Middleware).Post("/register", accountsHandler.Register)
			authRt.With(authLimiter.Middleware).Post("/verify-otp", accountsHandler.VerifyOTP)
			authRt.With(authLimiter.Middleware).Post("/resend-otp", accountsHandler.ResendOTP)
			authRt.With(authLimiter.Middleware).Post("/login", accountsHandler.Login)
			authRt.Post("/refresh", accountsHandler.Refresh)
		})

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.Auth(jwtManager))

			protected.Get("/me", accountsHandler.Me)

			for path, role := range map[string]string{
				"/patients":  accounts.RolePatient,
				"/doctors":   accounts.RoleDoctor,
				"/employees": accounts.RoleEmployee,
			} {
				protected.Route(path, func(rt chi.Router) {
					rt.Get("/", accountsHandler.ListByRole(role))
					rt.Get("/{id}", accountsHandler.Get)
					rt.Put("/{id}", accountsHandler.Update)
					rt.With(middleware.RequireRoles(accounts.RoleAdmin)).Delete("/{id}", accountsHandler.Delete)
				})
			}

			protected.Route("/hospitals", func(rt chi.Router) {
				hospitalsHandler.Mount(rt, accounts.RoleAdmin, accounts.RoleEmployee)
			})
			protected.Route("/specialties", func(rt chi.Router) {
				specialtiesHandler.Mount(rt, accounts.RoleAdmin, accounts.RoleEmployee)
			})
			protected.Route("/pharmacies", func(rt chi.Router) {
				pharmaciesHandler.Mount(rt, accounts.RoleAdmin, accounts.RoleEmployee)
			})
			protected.Route("/doctor_levels", func(rt chi.Router) {
				doctorLevelsHandler.Mount(rt, accounts.RoleAdmin)
			})
			protected.Route("/medicines", func(rt chi.Router) {
				medicinesHandler.Mount(rt, accounts.RoleAdmin, accounts.RoleEmployee)
			})

			protected.Post("/triage", triageHandler.Suggest)
		})
	})

	r.Route("/appointments", func(rt chi.Router) {
		rt.Use(middleware.Auth(jwtManager))
		rt.With(middleware.RequireRoles(accounts.RolePatient)).Post("/", appointmentsHandler.Create)
		rt.Get("/", appointmentsHandler.List)
		rt.Get("/{id}", appointmentsHandler.Get)
		rt.With(middleware.RequireRoles(accounts.RolePatient)).Patch("/{id}/answers", appointmentsHandler.SubmitAnswers)
		rt.With(middleware.RequireRoles(accounts.RolePatient)).Patch("/{id}/doctor", appointmentsHandler.SelectDoctor)
		rt.With(middleware.RequireRoles(accounts.RolePatient)).Post("/{id}/cancel", appointmentsHandler.Cancel)
		rt.With(middleware.RequireRoles(accounts.RoleDoctor)).Post("/{id}/confirm", appointmentsHandler.Decision(true))
		rt.With(middleware.RequireRoles(accounts.RoleDoctor)).Post("/{id}/reject", appointmentsHandler.Decision(false))
	})

	r.Route("/case", func(rt chi.Router) {
		rt.Use(middleware.Auth(jwtManager))
		rt.With(middleware.RequireRoles(accounts.RolePatient)).Post("/", casesHandler.Create)
		rt.Get("/", casesHandler.List)
		rt.Get("/{id}", casesHandler.Get)
		rt.Patch("/{id}", casesHandler.UpdateForm)
		rt.Patch("/{id}/status", casesHandler.AdvanceStatus)
		rt.With(middleware.RequireRoles(accounts.RoleAdmin, accounts.RoleEmployee)).Post("/{id}/assign", casesHandler.Assign)
		rt.With(middleware.RequireRoles(accounts.RoleDoctor, accounts.RoleEmployee)).Post("/{id}/offers", casesHandler.AddOffer)
		rt.Delete("/{id}", casesHandler.Delete)
	})

	r.Route("/payment", func(rt chi.Router) {
		rt.Get("/vnpay_return", paymentHandler.Callback)
		rt.Get("/vnpay_ipn", paymentHandler.Callback)
		rt.Group(func(protected chi.Router) {
			protected.Use(middleware.Auth(jwtManager))
			protected.With(middleware.RequireRoles(accounts.RolePatient), paymentLimiter.Middleware).Post("/url", paymentHandler.CreateURL)
			protected.With(middleware.RequireRoles(accounts.RoleAdmin)).Post("/refund", paymentHandler.Refund)
			protected.With(middleware.RequireRoles(accounts.RoleAdmin)).Post("/transactions", paymentHandler.AppendLedgerEntry)
			protected.With(middleware.RequireRoles(accounts.RoleAdmin, accounts.RoleEmployee)).Get("/orders", paymentHandler.ListOrders)
			protected.With(middleware.RequireRoles(accounts.RoleAdmin, accounts.RoleEmployee)).Get("/transactions", paymentHandler.ListTransactions)
		})
	})

	r.Route("/report", func(rt chi.Router) {
		rt.Use(middleware.Auth(jwtManager))
		rt.Use(middleware.RequireRoles(accounts.RoleAdmin, accounts.RoleEmployee))
		rt.Get("/overview", reportHandler.Overview)
	})

	grpcServer := referral.NewGRPCServer(referralService)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("grpc listen failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	go func() {
		logger.Info("grpc server started", slog.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("grpc server error", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	grpcServer.GracefulStop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
}
