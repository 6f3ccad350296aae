package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"genfity-order-reports/internal/export"
	"genfity-order-reports/internal/queue"
	"genfity-order-reports/internal/report"

	"go.uber.org/zap"
)

// JobQueue carries export jobs to the worker and completions back out.
type JobQueue interface {
	Enqueue(ctx context.Context, job queue.ExportJob) error
	Completed(ctx context.Context, evt queue.ExportCompletedEvent) error
}

var errJobsDisabled = errors.New("export queue is not configured")

func newJobID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(buf)
}

// EnqueueExport validates the request up front so a bad range is reported to
// the caller instead of dead-lettered, then hands the job to the worker.
func (s *ReportService) EnqueueExport(ctx context.Context, req Request, format export.Format, requestedBy string) (queue.ExportJob, error) {
	if s.Jobs == nil {
		return queue.ExportJob{}, report.ExportError(errJobsDisabled)
	}
	if s.Archive == nil {
		return queue.ExportJob{}, report.ExportError(errArchiveDisabled)
	}
	if _, err := s.resolve(ctx, req); err != nil {
		return queue.ExportJob{}, err
	}

	job := queue.ExportJob{
		JobID:       newJobID(),
		PartnerID:   req.PartnerID,
		Mode:        string(req.Mode),
		Format:      string(format),
		RequestedBy: requestedBy,
		RequestedAt: s.opts.Now().UTC(),
	}
	if req.Custom != nil {
		job.StartDate = req.Custom.Start.Format("2006-01-02")
		job.EndDate = req.Custom.End.Format("2006-01-02")
	}
	if err := s.Jobs.Enqueue(ctx, job); err != nil {
		s.Logger.Error("failed to enqueue report export", zap.String("partnerId", req.PartnerID), zap.Error(err))
		return queue.ExportJob{}, report.ExportError(err)
	}
	return job, nil
}

// ProcessExportJob is the queue handler for export jobs. Invalid jobs fail
// permanently; source and store failures are retried.
func (s *ReportService) ProcessExportJob(ctx context.Context, body []byte) error {
	job, err := queue.DecodeExportJob(body)
	if err != nil {
		s.Logger.Warn("dropping malformed export job", zap.Error(err))
		return err
	}

	logger := s.Logger.With(zap.String("jobId", job.JobID), zap.String("partnerId", job.PartnerID))

	req, err := NewRequest(job.PartnerID, job.Mode, job.StartDate, job.EndDate)
	if err != nil {
		s.completeExport(ctx, job, StoredExport{}, err)
		return queue.Permanent(err)
	}
	format, err := export.ParseFormat(job.Format)
	if err != nil {
		s.completeExport(ctx, job, StoredExport{}, err)
		return queue.Permanent(err)
	}

	stored, err := s.ExportAndStore(ctx, req, format)
	if err != nil {
		var re *report.Error
		if errors.As(err, &re) && re.StatusCode < 500 {
			s.completeExport(ctx, job, StoredExport{}, err)
			return queue.Permanent(err)
		}
		logger.Warn("report export attempt failed", zap.Error(err))
		return err
	}

	logger.Info("report export stored", zap.String("key", stored.Key))
	s.completeExport(ctx, job, stored, nil)
	return nil
}

func (s *ReportService) completeExport(ctx context.Context, job queue.ExportJob, stored StoredExport, failure error) {
	evt := queue.ExportCompletedEvent{
		Type:        queue.ExportCompletedRK,
		JobID:       job.JobID,
		PartnerID:   job.PartnerID,
		Filename:    stored.Filename,
		Key:         stored.Key,
		DownloadURL: stored.DownloadURL,
		CompletedAt: s.opts.Now().UTC(),
	}
	if failure != nil {
		evt.Error = strings.TrimSpace(failure.Error())
	}

	if s.Jobs != nil {
		if err := s.Jobs.Completed(ctx, evt); err != nil {
			s.Logger.Warn("failed to publish export completion", zap.String("jobId", job.JobID), zap.Error(err))
		}
	}
	if s.Notifier != nil {
		s.Notifier.ExportCompleted(evt)
	}
}

// HandleOrderEvent drops cached reports when an order of the partner changes.
func (s *ReportService) HandleOrderEvent(_ context.Context, body []byte) error {
	evt, ok, err := queue.DecodeOrderEvent(body)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.InvalidatePartner(evt.Partner(), evt.Type)
	return nil
}
