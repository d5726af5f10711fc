package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/risk"
)

// PassResult summarizes one daily monitoring pass.
type PassResult struct {
	// Checked counts patients whose evaluation started.
	Checked int `json:"checked"`
	// Updated counts records whose risk level changed.
	Updated int `json:"updated"`
	// Escalated counts updates that raised the risk level.
	Escalated int `json:"escalated"`
	// Skipped counts patients locked by a concurrent pass.
	Skipped int `json:"skipped"`
	// Failed counts patients whose evaluation or write failed.
	Failed int `json:"failed"`
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeUpdated
	outcomeEscalated
	outcomeSkipped
)

// RunDailyMonitoringPass re-evaluates every monitored patient from recent
// activity and persists changed risk levels. Failures are isolated per
// patient; the returned error is non-nil only when the records cannot be
// listed. Once ctx is cancelled no further patients are started; patients
// already started run to completion within the per-patient timeout.
func (s *Service) RunDailyMonitoringPass(ctx context.Context) (PassResult, error) {
	records, err := s.repo.ListMonitoringRecords(ctx)
	if err != nil {
		return PassResult{}, fmt.Errorf("list monitoring records: %w", err)
	}

	started := time.Now()
	slog.Info("Monitoring pass started", "patients", len(records), "workers", s.opts.Workers)

	var (
		mu     sync.Mutex
		result PassResult
	)
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		rec := rec
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			out, err := s.checkPatient(ctx, rec)

			mu.Lock()
			defer mu.Unlock()
			result.Checked++
			if err != nil {
				result.Failed++
				slog.Error("Monitoring check failed", "patient_id", rec.PatientID, "error", err)
				return nil
			}
			switch out {
			case outcomeSkipped:
				result.Skipped++
			case outcomeEscalated:
				result.Escalated++
				result.Updated++
			case outcomeUpdated:
				result.Updated++
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		slog.Warn("Monitoring pass interrupted", "checked", result.Checked, "total", len(records), "reason", ctx.Err())
	}
	slog.Info("Monitoring pass completed",
		"checked", result.Checked,
		"updated", result.Updated,
		"escalated", result.Escalated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", time.Since(started))
	return result, nil
}

func (s *Service) checkPatient(parent context.Context, rec *domain.MonitoringRecord) (outcome, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.opts.PatientTimeout)
	defer cancel()

	unlock, ok, err := s.locker.TryLock(ctx, LockKey(rec.PatientID), s.opts.LockTTL)
	if err != nil {
		return outcomeUnchanged, err
	}
	if !ok {
		slog.Debug("Patient locked by another pass", "patient_id", rec.PatientID)
		return outcomeSkipped, nil
	}
	defer unlock()

	now := s.now().UTC()
	recent, err := s.recentActivity(ctx, rec.PatientID, now)
	if err != nil {
		return outcomeUnchanged, err
	}

	a := risk.EvaluateDaily(recent)
	transition := domain.Classify(rec.RiskLevel, a.Level)
	if transition == domain.TransitionUnchanged {
		return outcomeUnchanged, nil
	}

	if err := s.repo.UpdateRiskLevel(ctx, rec.ID, rec.RiskLevel, a.Level, a.Notes(), now); err != nil {
		return outcomeUnchanged, fmt.Errorf("update risk level: %w", err)
	}
	slog.Info("Patient risk level changed",
		"patient_id", rec.PatientID,
		"previous", int(rec.RiskLevel),
		"risk_level", int(a.Level),
		"transition", string(transition))

	if a.Level >= domain.RiskHigh && rec.HasTherapist() {
		s.alertTherapist(ctx, rec, a)
	}
	if transition == domain.TransitionEscalated {
		return outcomeEscalated, nil
	}
	return outcomeUpdated, nil
}

func (s *Service) recentActivity(ctx context.Context, patientID string, now time.Time) (risk.Recent, error) {
	lastDay, err := s.repo.CountMoodLogsSince(ctx, patientID, now.Add(-day))
	if err != nil {
		return risk.Recent{}, fmt.Errorf("count mood logs (1d): %w", err)
	}
	last3Days, err := s.repo.CountMoodLogsSince(ctx, patientID, now.Add(-3*day))
	if err != nil {
		return risk.Recent{}, fmt.Errorf("count mood logs (3d): %w", err)
	}
	lastWeek, err := s.repo.ListMoodLogs(ctx, patientID, now.Add(-week), now)
	if err != nil {
		return risk.Recent{}, fmt.Errorf("list mood logs (7d): %w", err)
	}
	return risk.Recent{LogsLastDay: lastDay, LogsLast3Days: last3Days, LastWeek: lastWeek}, nil
}

// alertTherapist notifies the therapist assigned to rec. Failures are logged
// and never fail the pass.
func (s *Service) alertTherapist(ctx context.Context, rec *domain.MonitoringRecord, a risk.Assessment) {
	if s.notifier == nil {
		return
	}
	therapist, err := s.repo.GetTherapist(ctx, rec.TherapistID)
	if err != nil {
		slog.Warn("Failed to resolve therapist for risk alert",
			"patient_id", rec.PatientID, "therapist_id", rec.TherapistID, "error", err)
		return
	}

	name := "A patient"
	if patient, err := s.repo.GetUser(ctx, rec.PatientID); err == nil && patient.FullName != "" {
		name = patient.FullName
	}

	body := fmt.Sprintf("%s is now at %s risk.", name, a.Level.Label())
	if notes := a.Notes(); notes != "" {
		body += " " + notes + "."
	}
	data := map[string]interface{}{
		"patientId": rec.PatientID,
		"riskLevel": int(a.Level),
		"riskLabel": a.Level.Label(),
		"factors":   a.Factors,
	}
	if _, err := s.notifier.Notify(ctx, therapist.UserID, "Patient Risk Alert", body, domain.NotificationSystem, data); err != nil {
		slog.Warn("Failed to notify therapist",
			"patient_id", rec.PatientID, "user_id", therapist.UserID, "error", err)
	}
}
