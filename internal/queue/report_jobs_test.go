package queue

import (
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestDecodeExportJob(t *testing.T) {
	job, err := DecodeExportJob([]byte(`{"jobId":"j1","partnerId":"42","mode":"month","format":"xlsx"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.JobID != "j1" || job.PartnerID != "42" || job.Format != "xlsx" {
		t.Fatalf("unexpected job %+v", job)
	}

	cases := map[string]string{
		"bad json":        `{`,
		"missing job":     `{"partnerId":"42"}`,
		"missing partner": `{"jobId":"j1"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeExportJob([]byte(body))
			var permanent *PermanentError
			if !errors.As(err, &permanent) {
				t.Fatalf("expected permanent error, got %v", err)
			}
		})
	}
}

func TestDecodeOrderEvent(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		ok      bool
		partner string
	}{
		{name: "numeric merchant", body: `{"type":"order.status.updated","orderId":7,"merchantId":42}`, ok: true, partner: "42"},
		{name: "string partner", body: `{"type":"order.created","partnerId":"p-1"}`, ok: true, partner: "p-1"},
		{name: "no partner", body: `{"type":"order.created"}`, ok: false},
		{name: "other event", body: `{"type":"menu.updated","merchantId":1}`, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evt, ok, err := DecodeOrderEvent([]byte(tc.body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if tc.ok && evt.Partner() != tc.partner {
				t.Fatalf("expected partner %s, got %s", tc.partner, evt.Partner())
			}
		})
	}
}

func TestGetRetryCount(t *testing.T) {
	cases := []struct {
		headers  amqp.Table
		expected int
	}{
		{headers: nil, expected: 0},
		{headers: amqp.Table{"x-retry-count": int32(2)}, expected: 2},
		{headers: amqp.Table{"x-retry-count": int64(4)}, expected: 4},
		{headers: amqp.Table{"x-retry-count": "3"}, expected: 0},
	}
	for _, tc := range cases {
		if got := getRetryCount(tc.headers); got != tc.expected {
			t.Fatalf("expected %d, got %d", tc.expected, got)
		}
	}
}
