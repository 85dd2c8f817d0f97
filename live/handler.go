package live

import (
	"context"
	"net/http"
	"slices"
	"time"

	"cafehub/apperr"
	"cafehub/logging"
	"cafehub/middleware"
	"cafehub/models"
	"cafehub/tenant"
	"cafehub/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Handler struct {
	hub      *Hub
	auth     *middleware.Auth
	resolver *tenant.Resolver
	upgrader websocket.Upgrader
}

// NewHandler accepts upgrades from the listed origins; an empty list admits any.
func NewHandler(hub *Hub, auth *middleware.Auth, resolver *tenant.Resolver, origins []string) *Handler {
	return &Handler{
		hub:      hub,
		auth:     auth,
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || slices.Contains(origins, origin)
			},
		},
	}
}

// staffUser authenticates the ?token= query value and requires an assigned staff account.
func (h *Handler) staffUser(ctx context.Context, raw string) (*models.User, error) {
	if raw == "" {
		return nil, apperr.Unauthorized("missing token")
	}
	claims, err := h.auth.Parse(ctx, raw)
	if err != nil {
		return nil, err
	}
	u, err := h.resolver.Caller(ctx, tenant.Principal{UserID: claims.UserID, Role: claims.Role})
	if err != nil {
		return nil, err
	}
	if !models.IsStaff(u.Role) || u.CafeID == "" {
		return nil, apperr.Permission("only cafe staff can follow the live feed")
	}
	return u, nil
}

// Serve upgrades the connection and joins the caller's café room.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	u, err := h.staffUser(ctx, r.URL.Query().Get("token"))
	cancel()
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.For("live").WithError(err).Warn("websocket upgrade failed")
		return
	}
	client := &Client{Send: make(chan []byte, 64), Room: u.CafeID, UserID: u.ID}
	h.hub.Register(client)
	logging.For("live").WithFields(logrus.Fields{"user_id": u.ID, "cafe_id": u.CafeID}).Info("live feed connected")

	go writePump(conn, client)
	go readPump(conn, client, h.hub)
}

func writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the close; the feed is one-way.
func readPump(conn *websocket.Conn, c *Client, hub *Hub) {
	defer func() {
		hub.Unregister(c)
		conn.Close()
	}()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
