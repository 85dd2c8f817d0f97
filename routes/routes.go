package routes

import (
	"fmt"
	"net/http"

	"cafehub/auth"
	"cafehub/cafes"
	"cafehub/crud"
	"cafehub/discounts"
	"cafehub/filemgr"
	"cafehub/live"
	"cafehub/menu"
	"cafehub/middleware"
	"cafehub/models"
	"cafehub/orders"
	"cafehub/pay"
	"cafehub/ratelim"
	"cafehub/reservations"
	"cafehub/staff"
	"cafehub/tickets"

	"github.com/julienschmidt/httprouter"
)

// Handlers is everything the router mounts.
type Handlers struct {
	Auth  *auth.Handler
	Cafes *cafes.Handler
	Rules *crud.Resource[models.Rule, *models.Rule]
	Staff *staff.Handler

	Rewards *crud.Resource[models.Reward, *models.Reward]

	Tables        *crud.Resource[models.Table, *models.Table]
	Desks         *crud.Resource[models.Desk, *models.Desk]
	Films         *crud.Resource[models.Film, *models.Film]
	MovieSessions *crud.Resource[models.MovieSession, *models.MovieSession]
	Events        *crud.Resource[models.Event, *models.Event]
	EventSessions *crud.Resource[models.EventSession, *models.EventSession]
	Products      *crud.Resource[models.Product, *models.Product]
	Inventory     *crud.Resource[models.InventoryItem, *models.InventoryItem]

	Discounts     *crud.Resource[models.DiscountCode, *models.DiscountCode]
	DiscountCheck *discounts.Handler

	Reservations *reservations.Handler
	Orders       *orders.Handler
	Tickets      *tickets.Handler
	Payments     *pay.Handler
	Live         *live.Handler

	Files *filemgr.Store
}

// Guards are the wrappers shared across route groups.
type Guards struct {
	Authn       middleware.Middleware
	Optional    middleware.Middleware
	Limiter     *ratelim.RateLimiter
	Idempotency pay.IdempotencyStore
}

// once wraps a create handle so a repeated Idempotency-Key replays the first response.
func (g Guards) once(h httprouter.Handle) httprouter.Handle {
	return g.Authn(pay.Idempotent(g.Idempotency, h))
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddStaticRoutes(router *httprouter.Router, files *filemgr.Store) {
	router.GET("/health", Index)
	router.ServeFiles("/static/uploads/*filepath", http.Dir(files.Root()))
}

func AddAuthRoutes(router *httprouter.Router, h *Handlers, g Guards) {
	limited := middleware.Chain(g.Limiter.Limit)
	router.POST("/api/auth/signup", limited(h.Auth.Signup))
	router.POST("/api/auth/login", limited(h.Auth.Login))
	router.GET("/api/auth/me", g.Authn(h.Auth.Me))
	router.POST("/api/auth/logout", g.Authn(h.Auth.Logout))
}

func AddCafeRoutes(router *httprouter.Router, h *Handlers, g Guards) {
	h.Cafes.Register(router, g.Authn, g.Optional)
	h.Rules.Register(router, "/api/rules", g.Authn)
	h.Staff.Register(router, h.Rewards, g.Authn)
}

func AddResourceRoutes(router *httprouter.Router, h *Handlers, g Guards) {
	h.Tables.Register(router, "/api/tables", g.Authn)
	h.Desks.Register(router, "/api/coworking/desks", g.Authn)

	h.Films.Register(router, "/api/cinema/films", g.Authn)
	router.POST("/api/cinema/films/:id/image", g.Authn(h.Films.UploadImage(h.Files, filemgr.KindFilm, "poster_url")))
	h.MovieSessions.Register(router, "/api/cinema/sessions", g.Authn)

	h.Events.Register(router, "/api/events", g.Authn)
	router.POST("/api/events/:id/image", g.Authn(h.Events.UploadImage(h.Files, filemgr.KindEvent, "image_url")))
	h.EventSessions.Register(router, "/api/event-sessions", g.Authn)

	h.Products.Register(router, "/api/products", g.Authn)
	router.POST("/api/products/:id/image", g.Authn(h.Products.UploadImage(h.Files, filemgr.KindProduct, "image_url")))
	router.POST("/api/products/:id/restock", g.Authn(menu.Restock(h.Products)))
	h.Inventory.Register(router, "/api/inventory", g.Authn)

	h.Discounts.Register(router, "/api/discounts", g.Authn)
	router.POST("/api/discounts/verify", g.Authn(h.DiscountCheck.Verify))
}

func AddReservationRoutes(router *httprouter.Router, h *Handlers, g Guards) {
	for _, kind := range []string{
		models.ReservationTable,
		models.ReservationCinema,
		models.ReservationEvent,
		models.ReservationCoworking,
	} {
		router.POST("/api/reservations/"+kind, g.once(h.Reservations.Create(kind)))
	}
	router.GET("/api/reservations", g.Authn(h.Reservations.List))
	router.GET("/api/reservations/:id", g.Authn(h.Reservations.Get))
	router.PUT("/api/reservations/:id/status", g.Authn(h.Reservations.UpdateStatus))
	router.GET("/api/reservations/:id/ticket", g.Authn(h.Tickets.Print))
	router.POST("/api/tickets/verify", g.Authn(middleware.RequireRoles(h.Tickets.Verify, models.StaffRoles...)))

	router.GET("/api/live", h.Live.Serve)
}

func AddOrderRoutes(router *httprouter.Router, h *Handlers, g Guards) {
	router.POST("/api/orders", g.once(h.Orders.Create))
	router.GET("/api/orders", g.Authn(h.Orders.List))
	router.GET("/api/orders/:id", g.Authn(h.Orders.Get))
	router.PUT("/api/orders/:id/status", g.Authn(h.Orders.UpdateStatus))
	router.PUT("/api/orders/:id/prep", g.Authn(h.Orders.UpdatePrep))
}

func AddPayRoutes(router *httprouter.Router, h *Handlers, g Guards) {
	router.POST("/api/payments/request", middleware.Chain(g.Limiter.Limit, g.once)(h.Payments.RequestPayment))
	router.GET("/api/payments/verify", middleware.Chain(g.Limiter.Limit, g.Authn)(h.Payments.VerifyPayment))
}

// RoutesWrapper mounts every route group.
func RoutesWrapper(router *httprouter.Router, h *Handlers, g Guards) {
	AddStaticRoutes(router, h.Files)
	AddAuthRoutes(router, h, g)
	AddCafeRoutes(router, h, g)
	AddResourceRoutes(router, h, g)
	AddReservationRoutes(router, h, g)
	AddOrderRoutes(router, h, g)
	AddPayRoutes(router, h, g)
}
