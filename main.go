package main

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafehub/auth"
	"cafehub/cafes"
	"cafehub/cinema"
	"cafehub/config"
	"cafehub/db"
	"cafehub/discounts"
	"cafehub/events"
	"cafehub/filemgr"
	"cafehub/ledger"
	"cafehub/live"
	"cafehub/logging"
	"cafehub/menu"
	"cafehub/middleware"
	"cafehub/mq"
	"cafehub/orders"
	"cafehub/pay"
	"cafehub/ratelim"
	"cafehub/rdx"
	"cafehub/reservations"
	"cafehub/routes"
	"cafehub/staff"
	"cafehub/tables"
	"cafehub/tenant"
	"cafehub/tickets"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working through the logger.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// loggingMiddleware logs each request method, path, status, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	log := logging.For("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Log.WithError(err).Fatal("load config")
	}
	log := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
		File:   cfg.LogFile,
	})

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelBoot()

	mongoClient, err := db.Connect(bootCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.WithError(err).Fatal("connect to MongoDB")
	}
	if err := db.EnsureIndexes(bootCtx); err != nil {
		log.WithError(err).Fatal("ensure indexes")
	}
	redisClient, err := rdx.Connect(bootCtx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Fatal("connect to Redis")
	}
	kv := rdx.NewStore(redisClient)

	users := auth.NewUserStore(db.UserCollection)
	if err := auth.EnsureDefaultManager(bootCtx, users, cfg.DefaultManagerUsername, cfg.DefaultManagerPassword); err != nil {
		log.WithError(err).Fatal("seed default manager")
	}

	authn := middleware.NewAuth([]byte(cfg.JwtSecret), cfg.AccessTokenTTL, kv)
	cafeRepo := cafes.NewCafeRepo(db.CafesCollection)
	registry := cafes.NewRegistry(cafeRepo)
	resolver := tenant.NewResolver(users, registry)
	files := filemgr.NewStore(cfg.UploadDir, "/static/uploads")

	// resource repository
	tableRepo, deskRepo := tables.NewTableRepo(db.TablesCollection), tables.NewDeskRepo(db.DesksCollection)
	filmRepo, movieRepo := cinema.NewFilmRepo(db.FilmsCollection), cinema.NewSessionRepo(db.MovieSessionsCollection)
	eventRepo, eventSessionRepo := events.NewEventRepo(db.EventsCollection), events.NewSessionRepo(db.EventSessionsCollection)
	productRepo := menu.NewProductRepo(db.ProductsCollection)
	employeeRepo := staff.NewEmployeeRepo(db.EmployeesCollection)

	// availability ledger and reservation façade
	book := ledger.NewMongo(ledger.Collections{
		Tables:        db.TablesCollection,
		Desks:         db.DesksCollection,
		MovieSessions: db.MovieSessionsCollection,
		EventSessions: db.EventSessionsCollection,
		Products:      db.ProductsCollection,
	})
	resSvc := reservations.NewService(reservations.NewMongoStore(db.ReservationsCollection), book, resolver,
		reservations.RepoCatalog{Sessions: movieRepo, EventSessions: eventSessionRepo})
	discountSvc := discounts.NewService(discounts.NewMongoStore(db.DiscountCodesCollection))
	orderSvc := orders.NewService(orders.NewMongoStore(db.OrdersCollection), orders.RepoProducts{Repo: productRepo}, discountSvc, resSvc)
	resSvc.OnChange(mq.NewEmitter(redisClient).Hook)

	hub := live.NewHub()
	go hub.Run()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go mq.StartReservationWorker(workerCtx, redisClient, func(ev mq.ReservationEvent, raw []byte) {
		hub.Publish(ev.CafeID, raw)
	})

	gateway := pay.NewGateway(cfg.PaymentMerchantID, cfg.PaymentRequestURL, cfg.PaymentVerifyURL, cfg.PaymentStartURL)
	paySvc := pay.NewService(gateway, pay.NewMongoPending(db.PaymentPendingCollection), orderSvc, resSvc, resolver, kv, cfg.PaymentMinAmount)

	h := &routes.Handlers{
		Auth:    auth.NewHandler(users, authn, kv),
		Cafes:   cafes.NewHandler(cafeRepo, resolver, users, files),
		Rules:   cafes.NewRules(cafes.NewRuleRepo(db.RulesCollection), resolver),
		Rewards: staff.NewRewards(staff.NewRewardRepo(db.RewardsCollection), employeeRepo, resolver),
		Staff: &staff.Handler{
			Employees: staff.NewEmployees(employeeRepo, resolver),
			Shifts:    staff.NewShifts(staff.NewShiftRepo(db.ShiftsCollection), employeeRepo, resolver),
			Accounts:  users,
		},

		Tables:        tables.NewTables(tableRepo, resolver),
		Desks:         tables.NewDesks(deskRepo, resolver),
		Films:         cinema.NewFilms(filmRepo, resolver),
		MovieSessions: cinema.NewSessions(movieRepo, filmRepo, registry, resolver),
		Events:        events.NewEvents(eventRepo, resolver),
		EventSessions: events.NewSessions(eventSessionRepo, eventRepo, resolver),
		Products:      menu.NewProducts(productRepo, resolver),
		Inventory:     menu.NewInventory(menu.NewInventoryRepo(db.InventoryCollection), resolver),

		Discounts:     discounts.NewResource(discounts.NewRepo(db.DiscountCodesCollection), resolver),
		DiscountCheck: discounts.NewHandler(discountSvc, resolver),

		Reservations: reservations.NewHandler(resSvc),
		Orders:       orders.NewHandler(orderSvc),
		Tickets:      tickets.NewHandler(resSvc, registry, tickets.NewSigner(cfg.TicketSecret)),
		Payments:     pay.NewHandler(paySvc),
		Live:         live.NewHandler(hub, authn, resolver, cfg.CorsOrigins),

		Files: files,
	}

	limiter := ratelim.NewRateLimiter(30, 10).TrustProxies(cfg.TrustedProxies...)
	stopJanitor := make(chan struct{})
	go limiter.Janitor(time.Minute, stopJanitor)

	router := httprouter.New()
	routes.RoutesWrapper(router, h, routes.Guards{
		Authn:       authn.Authenticate,
		Optional:    authn.OptionalAuth,
		Limiter:     limiter,
		Idempotency: pay.NewMongoIdempotency(db.IdempotencyCollection),
	})

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		ExposedHeaders:   []string{"Idempotent-Replayed", "Retry-After"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           loggingMiddleware(securityHeaders(corsHandler)),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Info("stopping live hub and workers")
		hub.Stop()
		stopWorker()
		close(stopJanitor)
	})

	go func() {
		log.WithField("addr", cfg.Port).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("ListenAndServe")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received; shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if err := mongoClient.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("disconnect MongoDB")
	}
	closeRedis(redisClient, log)
	log.Info("server stopped cleanly")
}

func closeRedis(c *redis.Client, log *logrus.Logger) {
	if err := c.Close(); err != nil {
		log.WithError(err).Warn("close Redis")
	}
}
