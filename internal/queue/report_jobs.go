package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "genfity.events"

	ReportExportExchange = "genfity.report_exports"
	ReportExportQueue    = "genfity.report_exports.process"
	ReportExportDLQ      = "genfity.report_exports.dlq"
	ReportExportRK       = "process"
	ReportExportDeadRK   = "dead"

	ReportOrderEventsQueue = "genfity.reports.order_events"

	ExportCompletedRK = "report.export.completed"
)

type ExportJob struct {
	JobID       string    `json:"jobId"`
	PartnerID   string    `json:"partnerId"`
	Mode        string    `json:"mode"`
	StartDate   string    `json:"startDate,omitempty"`
	EndDate     string    `json:"endDate,omitempty"`
	Format      string    `json:"format"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

type ExportCompletedEvent struct {
	Type        string    `json:"type"`
	JobID       string    `json:"jobId"`
	PartnerID   string    `json:"partnerId"`
	Filename    string    `json:"filename"`
	Key         string    `json:"key"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// OrderEvent is the part of the shared order event envelope the report
// service needs to drop stale aggregates.
type OrderEvent struct {
	Type       string `json:"type"`
	OrderID    any    `json:"orderId"`
	PartnerID  any    `json:"partnerId"`
	MerchantID any    `json:"merchantId"`
}

func (e OrderEvent) Partner() string {
	for _, v := range []any{e.PartnerID, e.MerchantID} {
		switch t := v.(type) {
		case string:
			if strings.TrimSpace(t) != "" {
				return strings.TrimSpace(t)
			}
		case float64:
			return fmt.Sprintf("%.0f", t)
		}
	}
	return ""
}

func EnsureReportExportTopology(ctx context.Context, qc *Client) error {
	if qc == nil {
		return nil
	}

	if err := qc.EnsureExchangeKind(ReportExportExchange, "direct"); err != nil {
		return err
	}

	if _, err := qc.EnsureQueue(ReportExportDLQ); err != nil {
		return err
	}
	if err := qc.BindQueue(ReportExportDLQ, ReportExportExchange, ReportExportDeadRK); err != nil {
		return err
	}

	_, err := qc.EnsureQueueWithArgs(ReportExportQueue, amqp.Table{
		"x-dead-letter-exchange":    ReportExportExchange,
		"x-dead-letter-routing-key": ReportExportDeadRK,
	})
	if err != nil {
		return err
	}
	return qc.BindQueue(ReportExportQueue, ReportExportExchange, ReportExportRK)
}

// EnsureOrderEventsTopology binds a report-owned queue to every order event.
func EnsureOrderEventsTopology(ctx context.Context, qc *Client) error {
	if qc == nil {
		return nil
	}
	if err := qc.EnsureExchange(EventsExchange); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(ReportOrderEventsQueue); err != nil {
		return err
	}
	// '#' matches multi-segment keys such as 'order.status.updated'.
	return qc.BindQueue(ReportOrderEventsQueue, EventsExchange, "order.#")
}

func PublishExportJob(ctx context.Context, qc *Client, job ExportJob) error {
	if qc == nil {
		return errors.New("queue is not configured")
	}
	return qc.PublishJSONWithID(ctx, ReportExportExchange, ReportExportRK, job.JobID, job)
}

func PublishExportCompleted(ctx context.Context, qc *Client, evt ExportCompletedEvent) error {
	if qc == nil {
		return nil
	}
	evt.Type = ExportCompletedRK
	return qc.PublishJSONWithID(ctx, EventsExchange, ExportCompletedRK, evt.JobID, evt)
}

// DecodeExportJob rejects malformed jobs as permanent failures.
func DecodeExportJob(body []byte) (ExportJob, error) {
	var job ExportJob
	if err := json.Unmarshal(body, &job); err != nil {
		return ExportJob{}, Permanent(err)
	}
	if strings.TrimSpace(job.JobID) == "" || strings.TrimSpace(job.PartnerID) == "" {
		return ExportJob{}, Permanent(errors.New("export job requires jobId and partnerId"))
	}
	return job, nil
}

// DecodeOrderEvent returns ok=false for envelopes that carry no partner.
func DecodeOrderEvent(body []byte) (OrderEvent, bool, error) {
	var evt OrderEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return OrderEvent{}, false, Permanent(err)
	}
	if !strings.HasPrefix(strings.TrimSpace(evt.Type), "order.") {
		return evt, false, nil
	}
	return evt, evt.Partner() != "", nil
}

// ReportJobs adapts a Client to the report service's job queue.
type ReportJobs struct {
	Client *Client
}

func (r ReportJobs) Enqueue(ctx context.Context, job ExportJob) error {
	return PublishExportJob(ctx, r.Client, job)
}

func (r ReportJobs) Completed(ctx context.Context, evt ExportCompletedEvent) error {
	return PublishExportCompleted(ctx, r.Client, evt)
}
