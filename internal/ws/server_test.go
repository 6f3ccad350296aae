package ws

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"genfity-order-reports/internal/auth"
	"genfity-order-reports/internal/config"
	"genfity-order-reports/internal/queue"

	"github.com/gorilla/websocket"
)

const testSecret = "test-secret"

func issueToken(t *testing.T, role auth.UserRole, partnerID string, perms ...string) string {
	t.Helper()
	claims := auth.Claims{UserID: "u1", Role: role, PartnerID: &partnerID, Permissions: perms}
	token, err := auth.IssueAccessToken(claims, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	target := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/partner/reports?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(nil, nil, config.Config{JWTSecret: testSecret, WSHeartbeatInterval: time.Minute})
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/partner/reports", s.PartnerReportsWS)
	httpSrv := httptest.NewServer(mux)
	t.Cleanup(httpSrv.Close)
	return s, httpSrv
}

func waitForSubscribers(t *testing.T, s *Server, partnerID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.count(partnerID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, got %d", want, s.hub.count(partnerID))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPartnerReportsWSBroadcastsToPartner(t *testing.T) {
	s, httpSrv := newTestServer(t)

	conn := dial(t, httpSrv, issueToken(t, auth.RolePartnerOwner, "p1"))
	defer conn.Close()
	other := dial(t, httpSrv, issueToken(t, auth.RolePartnerOwner, "p2"))
	defer other.Close()

	if msg := readMessage(t, conn); msg["type"] != "report.ready" || msg["partnerId"] != "p1" {
		t.Fatalf("unexpected ready message %v", msg)
	}
	readMessage(t, other)
	waitForSubscribers(t, s, "p1", 1)

	s.ExportCompleted(queue.ExportCompletedEvent{JobID: "j1", PartnerID: "p1", Filename: "Order_Report.xlsx"})
	msg := readMessage(t, conn)
	if msg["type"] != queue.ExportCompletedRK {
		t.Fatalf("expected export completion, got %v", msg)
	}

	s.handleNotification(" p1 ")
	if msg := readMessage(t, conn); msg["type"] != "report.refresh" || msg["reason"] != "orders_updates" {
		t.Fatalf("unexpected refresh message %v", msg)
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var stray map[string]any
	if err := other.ReadJSON(&stray); err == nil {
		t.Fatalf("expected no message for another partner, got %v", stray)
	}
}

func TestPartnerReportsWSAcceptsTokenForms(t *testing.T) {
	s, httpSrv := newTestServer(t)

	tests := []struct {
		name   string
		prefix string
	}{
		{name: "bare jwt", prefix: ""},
		{name: "bearer prefix", prefix: "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, httpSrv, tt.prefix+issueToken(t, auth.RolePartnerOwner, "p7"))
			defer conn.Close()
			if msg := readMessage(t, conn); msg["type"] != "report.ready" || msg["partnerId"] != "p7" {
				t.Fatalf("expected ready message, got %v", msg)
			}
			waitForSubscribers(t, s, "p7", 1)
			conn.Close()
			waitForSubscribers(t, s, "p7", 0)
		})
	}
}

func TestQueryToken(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "token=abc.def.ghi", want: "abc.def.ghi"},
		{query: "token=Bearer+abc.def.ghi", want: "abc.def.ghi"},
		{query: "token=+abc+", want: "abc"},
		{query: "", want: ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws/partner/reports?"+tt.query, nil)
		if got := queryToken(r); got != tt.want {
			t.Fatalf("expected %q for %q, got %q", tt.want, tt.query, got)
		}
	}
}

func TestPartnerReportsWSRejectsBadToken(t *testing.T) {
	s, httpSrv := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "staff without reports permission", token: issueToken(t, auth.RolePartnerStaff, "p1", "orders")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, httpSrv, tt.token)
			defer conn.Close()
			if msg := readMessage(t, conn); msg["type"] != "error" {
				t.Fatalf("expected error message, got %v", msg)
			}
			if s.hub.count("p1") != 0 {
				t.Fatalf("expected no subscription")
			}
		})
	}
}

type recordingInvalidator struct {
	calls []string
}

func (r *recordingInvalidator) InvalidatePartner(partnerID string, reason string) {
	r.calls = append(r.calls, partnerID+":"+reason)
}

func TestHandleNotificationInvalidates(t *testing.T) {
	s := New(nil, nil, config.Config{})
	inv := &recordingInvalidator{}
	s.Invalidator = inv

	s.handleNotification("")
	s.handleNotification("42")
	if len(inv.calls) != 1 || inv.calls[0] != "42:orders_updates" {
		t.Fatalf("unexpected invalidations %v", inv.calls)
	}
}

func TestPgxIdentifier(t *testing.T) {
	if got := pgxIdentifier(" orders_updates; drop table x "); got != "orders_updatesdroptablex" {
		t.Fatalf("unexpected identifier %q", got)
	}
}
