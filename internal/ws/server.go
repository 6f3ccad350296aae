package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"genfity-order-reports/internal/auth"
	"genfity-order-reports/internal/config"
	"genfity-order-reports/internal/middleware"
	"genfity-order-reports/internal/queue"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Invalidator drops cached reports of a partner.
type Invalidator interface {
	InvalidatePartner(partnerID string, reason string)
}

type Server struct {
	DB          *pgxpool.Pool
	Logger      *zap.Logger
	Config      config.Config
	Invalidator Invalidator

	hub *hub
}

func New(db *pgxpool.Pool, logger *zap.Logger, cfg config.Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{DB: db, Logger: logger, Config: cfg, hub: newHub()}
}

// ReportRefresh tells the partner's dashboards that their figures are stale.
func (s *Server) ReportRefresh(partnerID string, reason string) {
	s.hub.broadcast(partnerID, map[string]any{
		"type":      "report.refresh",
		"reason":    reason,
		"updatedAt": time.Now().UTC(),
	})
}

func (s *Server) ExportCompleted(evt queue.ExportCompletedEvent) {
	s.hub.broadcast(evt.PartnerID, map[string]any{
		"type": queue.ExportCompletedRK,
		"data": evt,
	})
}

// ListenLoop reacts to order change notifications on the configured Postgres
// channel. The payload is the partner id. It reconnects with backoff until
// ctx ends.
func (s *Server) ListenLoop(ctx context.Context) {
	if s.DB == nil {
		return
	}
	channel := pgxIdentifier(s.Config.WSListenChannel)
	if channel == "" {
		return
	}

	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := s.DB.Acquire(ctx)
		if err != nil {
			s.Logger.Warn("report LISTEN acquire failed", zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		if _, err = conn.Exec(ctx, "listen "+channel); err != nil {
			conn.Release()
			s.Logger.Warn("report LISTEN failed", zap.String("channel", channel), zap.Error(err))
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		backoff = time.Second
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				break
			}
			s.handleNotification(n.Payload)
		}

		conn.Release()
		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = minDuration(backoff*2, 30*time.Second)
	}
}

func (s *Server) handleNotification(payload string) {
	partnerID := strings.TrimSpace(payload)
	if partnerID == "" {
		return
	}
	if s.Invalidator != nil {
		s.Invalidator.InvalidatePartner(partnerID, "orders_updates")
		return
	}
	s.ReportRefresh(partnerID, "orders_updates")
}

// queryToken accepts the bare JWT as well as a "Bearer <jwt>" value.
func queryToken(r *http.Request) string {
	raw := strings.TrimSpace(r.URL.Query().Get("token"))
	if token := auth.ParseBearerToken(raw); token != "" {
		return token
	}
	return raw
}

// PartnerReportsWS streams report events for the token's partner. Browsers
// cannot set headers on upgrade, so the token comes from the query string.
func (s *Server) PartnerReportsWS(w http.ResponseWriter, r *http.Request) {
	token := queryToken(r)
	authCtx, _, message, _ := middleware.Authenticate(token, s.Config.JWTSecret, r.URL.Path, r.Method)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if authCtx == nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": message})
		return
	}

	c := &client{conn: conn}
	unsubscribe := s.hub.subscribe(authCtx.PartnerID, c)
	defer unsubscribe()

	_ = c.writeJSON(map[string]any{"type": "report.ready", "partnerId": authCtx.PartnerID})

	heartbeat := s.Config.WSHeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * heartbeat))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * heartbeat))
	})

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	ctx := r.Context()
	for {
		select {
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writeControl(websocket.PingMessage, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// pgxIdentifier keeps only characters valid in an unquoted channel name.
func pgxIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
