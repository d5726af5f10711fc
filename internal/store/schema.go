package store

// schema is valid for both SQLite and PostgreSQL. Timestamps are unix seconds.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL,
	full_name  TEXT,
	role       TEXT NOT NULL,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS therapists (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_therapists_user ON therapists(user_id);

CREATE TABLE IF NOT EXISTS mood_logs (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	mood          TEXT NOT NULL,
	anxiety_level TEXT,
	note          TEXT,
	logged_at     BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mood_logs_user_logged ON mood_logs(user_id, logged_at);

CREATE TABLE IF NOT EXISTS appointments (
	id           TEXT PRIMARY KEY,
	patient_id   TEXT NOT NULL,
	therapist_id TEXT NOT NULL,
	status       TEXT NOT NULL,
	start_time   BIGINT NOT NULL,
	end_time     BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_appointments_patient_start ON appointments(patient_id, start_time);

CREATE TABLE IF NOT EXISTS user_exercises (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	exercise_id  TEXT NOT NULL,
	completed_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_user_exercises_user_completed ON user_exercises(user_id, completed_at);

CREATE TABLE IF NOT EXISTS patient_monitoring (
	id            TEXT PRIMARY KEY,
	patient_id    TEXT NOT NULL UNIQUE,
	therapist_id  TEXT,
	risk_level    INTEGER NOT NULL DEFAULT 0,
	last_check_in BIGINT,
	notes         TEXT NOT NULL DEFAULT '',
	created_at    BIGINT NOT NULL,
	updated_at    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_patient_monitoring_risk ON patient_monitoring(risk_level);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL DEFAULT 'SYSTEM',
	is_read    INTEGER NOT NULL DEFAULT 0,
	data       TEXT,
	created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
`
