package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iurnickita/primelabel/internal/zpl"
)

type outcome struct {
	result LabelResult
	err    error
}

func (service *service) PurchaseLabels(ctx context.Context, req BulkPurchaseRequest) (BatchReport, error) {
	req.OrderIDs = trimIDs(req.OrderIDs)
	warnings, err := validatePurchase(req, req.Weight, req.Dimensions)
	if err != nil {
		return BatchReport{}, err
	}

	opts := zpl.Options{X: req.X, Y: req.Y}
	outcomes := fold(ctx, req.OrderIDs, service.cfg.BulkConcurrency,
		func(ctx context.Context, orderID string) (LabelResult, error) {
			return service.purchaseOne(ctx, orderID, req.Weight, req.Dimensions, opts)
		})
	return service.report(ctx, "purchase", req.OrderIDs, outcomes, warnings), nil
}

func (service *service) ReprintLabels(ctx context.Context, orderIDs []string) (BatchReport, error) {
	orderIDs = trimIDs(orderIDs)
	if err := validateOrderIDs(orderIDs); err != nil {
		return BatchReport{}, err
	}

	// без удаленных вызовов, всегда последовательно
	outcomes := fold(ctx, orderIDs, 1, service.ReprintLabel)
	return service.report(ctx, "reprint", orderIDs, outcomes, nil), nil
}

// fold applies do to every id and keeps the outcomes in input order.
// A failed id never stops the others.
func fold(ctx context.Context, ids []string, concurrency int, do func(ctx context.Context, id string) (LabelResult, error)) []outcome {
	outcomes := make([]outcome, len(ids))
	if concurrency <= 1 {
		for i, id := range ids {
			res, err := do(ctx, id)
			outcomes[i] = outcome{result: res, err: err}
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			res, err := do(ctx, id)
			outcomes[i] = outcome{result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (service *service) report(ctx context.Context, kind string, ids []string, outcomes []outcome, warnings []string) BatchReport {
	report := BatchReport{
		ID:       uuid.NewString(),
		Entries:  make([]BatchEntry, 0, len(ids)),
		Warnings: warnings,
	}

	var labels []string
	for i, o := range outcomes {
		entry := BatchEntry{OrderID: ids[i]}
		if o.err != nil {
			entry.Error = o.err.Error()
			entry.Err = o.err
			report.Summary.Failed++
		} else {
			entry.OK = true
			entry.TrackingID = o.result.TrackingID
			labels = append(labels, o.result.Label)
			report.Summary.Succeeded++
		}
		report.Entries = append(report.Entries, entry)
	}
	report.Summary.Total = len(ids)
	report.Combined = strings.Join(labels, "\n")

	if len(labels) > 0 && service.artifacts != nil {
		ticket, err := service.artifacts.Save(ctx, report.Combined)
		if err != nil {
			service.zaplog.Warn("combined label document not stored", zap.String("batch", report.ID), zap.Error(err))
		} else {
			report.Artifact = &ticket
		}
	}

	service.zaplog.Info("bulk "+kind+" finished",
		zap.String("batch", report.ID),
		zap.Int("total", report.Summary.Total),
		zap.Int("succeeded", report.Summary.Succeeded),
		zap.Int("failed", report.Summary.Failed),
	)
	return report
}

func trimIDs(ids []string) []string {
	trimmed := make([]string, len(ids))
	for i, id := range ids {
		trimmed[i] = strings.TrimSpace(id)
	}
	return trimmed
}
