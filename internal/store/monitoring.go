package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindoraRwanda/mindorabeta/internal/domain"
)

const monitoringColumns = `id, patient_id, therapist_id, risk_level, last_check_in, notes, created_at, updated_at`

func scanMonitoringRecord(row scanner, extra ...interface{}) (*domain.MonitoringRecord, error) {
	var rec domain.MonitoringRecord
	var therapistID sql.NullString
	var lastCheckIn sql.NullInt64
	var riskLevel int
	var createdAt, updatedAt int64

	dest := []interface{}{
		&rec.ID, &rec.PatientID, &therapistID, &riskLevel,
		&lastCheckIn, &rec.Notes, &createdAt, &updatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec.TherapistID = therapistID.String
	rec.RiskLevel = domain.RiskLevel(riskLevel).Clamp()
	rec.LastCheckIn = fromNullUnix(lastCheckIn)
	rec.CreatedAt = fromUnix(createdAt)
	rec.UpdatedAt = fromUnix(updatedAt)
	return &rec, nil
}

// UpsertMonitoringRecord creates the patient's monitoring record or replaces
// its therapist, risk level and notes. rec is refreshed from the stored row.
func (s *SQLStore) UpsertMonitoringRecord(ctx context.Context, rec *domain.MonitoringRecord) error {
	if !rec.RiskLevel.Valid() {
		return ErrInvalid
	}
	now := time.Now()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.LastCheckIn.IsZero() {
		rec.LastCheckIn = now
	}
	rec.UpdatedAt = now

	query := `
	INSERT INTO patient_monitoring (` + monitoringColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(patient_id) DO UPDATE SET
		therapist_id = excluded.therapist_id,
		risk_level = excluded.risk_level,
		last_check_in = excluded.last_check_in,
		notes = excluded.notes,
		updated_at = excluded.updated_at`

	_, err := s.exec(ctx, "upsert monitoring record", query,
		rec.ID, rec.PatientID, stringOrNil(rec.TherapistID), int(rec.RiskLevel),
		unixOrNil(rec.LastCheckIn), rec.Notes, rec.CreatedAt.Unix(), rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return err
	}

	stored, err := s.GetMonitoringRecord(ctx, rec.PatientID)
	if err != nil {
		return err
	}
	*rec = *stored
	return nil
}

// GetMonitoringRecord retrieves the monitoring record of a patient.
func (s *SQLStore) GetMonitoringRecord(ctx context.Context, patientID string) (*domain.MonitoringRecord, error) {
	query := `SELECT ` + monitoringColumns + ` FROM patient_monitoring WHERE patient_id = ?`
	rec, err := scanMonitoringRecord(s.queryRow(ctx, query, patientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("scan monitoring record", err)
	}
	return rec, nil
}

// GetMonitoringRecordByID retrieves a monitoring record by its ID.
func (s *SQLStore) GetMonitoringRecordByID(ctx context.Context, id string) (*domain.MonitoringRecord, error) {
	query := `SELECT ` + monitoringColumns + ` FROM patient_monitoring WHERE id = ?`
	rec, err := scanMonitoringRecord(s.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("scan monitoring record", err)
	}
	return rec, nil
}

// ListMonitoringRecords returns every monitoring record ordered by patient.
func (s *SQLStore) ListMonitoringRecords(ctx context.Context) ([]*domain.MonitoringRecord, error) {
	query := `SELECT ` + monitoringColumns + ` FROM patient_monitoring ORDER BY patient_id`

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, wrapErr("query monitoring records", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close monitoring rows", "error", closeErr)
		}
	}()

	var records []*domain.MonitoringRecord
	for rows.Next() {
		rec, err := scanMonitoringRecord(rows)
		if err != nil {
			return nil, wrapErr("scan monitoring record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate monitoring records", err)
	}
	return records, nil
}

// UpdateMonitoringEntry applies a therapist update and refreshes last_check_in.
func (s *SQLStore) UpdateMonitoringEntry(ctx context.Context, id string, update MonitoringUpdate, at time.Time) (*domain.MonitoringRecord, error) {
	sets := []string{"last_check_in = ?", "updated_at = ?"}
	args := []interface{}{at.Unix(), at.Unix()}

	if update.RiskLevel != nil {
		if !update.RiskLevel.Valid() {
			return nil, ErrInvalid
		}
		sets = append(sets, "risk_level = ?")
		args = append(args, int(*update.RiskLevel))
	}
	if update.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *update.Notes)
	}
	args = append(args, id)

	query := `UPDATE patient_monitoring SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := s.exec(ctx, "update monitoring entry", query, args...)
	if err != nil {
		return nil, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, wrapErr("get rows affected", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return s.GetMonitoringRecordByID(ctx, id)
}

// UpdateRiskLevel sets risk level and notes only if the stored level still
// equals expected.
func (s *SQLStore) UpdateRiskLevel(ctx context.Context, id string, expected, next domain.RiskLevel, notes string, at time.Time) error {
	if !next.Valid() {
		return ErrInvalid
	}

	query := `
		UPDATE patient_monitoring SET risk_level = ?, notes = ?, updated_at = ?
		WHERE id = ? AND risk_level = ?`

	result, err := s.exec(ctx, "update risk level", query,
		int(next), notes, at.Unix(), id, int(expected),
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return wrapErr("get rows affected", err)
	}
	if rows == 0 {
		slog.Warn("UpdateRiskLevel affected 0 rows", "monitoring_id", id, "expected_level", int(expected))
		return ErrConflict
	}
	return nil
}

// ListHighRiskPatients returns records with risk level >= minLevel joined
// with the patient's account, highest risk first.
func (s *SQLStore) ListHighRiskPatients(ctx context.Context, minLevel domain.RiskLevel) ([]domain.HighRiskPatient, error) {
	query := `
		SELECT m.id, m.patient_id, m.therapist_id, m.risk_level, m.last_check_in,
		       m.notes, m.created_at, m.updated_at, u.email, u.full_name
		FROM patient_monitoring m
		JOIN users u ON u.id = m.patient_id
		WHERE m.risk_level >= ?
		ORDER BY m.risk_level DESC, m.updated_at DESC`

	rows, err := s.query(ctx, query, int(minLevel))
	if err != nil {
		return nil, wrapErr("query high risk patients", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close high risk rows", "error", closeErr)
		}
	}()

	var patients []domain.HighRiskPatient
	for rows.Next() {
		var email string
		var fullName sql.NullString
		rec, err := scanMonitoringRecord(rows, &email, &fullName)
		if err != nil {
			return nil, wrapErr("scan high risk patient", err)
		}
		patients = append(patients, domain.HighRiskPatient{
			MonitoringRecord: *rec,
			Email:            email,
			FullName:         fullName.String,
			RiskLabel:        rec.RiskLevel.Label(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate high risk patients", err)
	}
	return patients, nil
}
