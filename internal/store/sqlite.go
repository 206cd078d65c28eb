package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/medlingo/transqa/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS results (
	id          TEXT PRIMARY KEY,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	status      TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pair_scores (
	id          TEXT PRIMARY KEY,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	score       REAL NOT NULL,
	recorded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS review_requests (
	id           TEXT PRIMARY KEY,
	result_id    TEXT NOT NULL,
	priority     TEXT NOT NULL,
	state        TEXT NOT NULL DEFAULT 'pending',
	reviewer     TEXT,
	payload      TEXT NOT NULL,
	requested_at DATETIME NOT NULL,
	deadline     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS review_decisions (
	id         TEXT PRIMARY KEY,
	request_id TEXT NOT NULL REFERENCES review_requests(id),
	reviewer_id TEXT NOT NULL,
	status     TEXT NOT NULL,
	payload    TEXT NOT NULL,
	decided_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS reviewers (
	id      TEXT PRIMARY KEY,
	active  INTEGER NOT NULL DEFAULT 1,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS correction_patterns (
	id          TEXT PRIMARY KEY,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	payload     TEXT NOT NULL,
	learned_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	severity     TEXT NOT NULL,
	payload      TEXT NOT NULL,
	triggered_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_langs ON results(source_lang, target_lang);
CREATE INDEX IF NOT EXISTS idx_results_status ON results(status);
CREATE INDEX IF NOT EXISTS idx_pair_scores_langs ON pair_scores(source_lang, target_lang, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_review_requests_state ON review_requests(state);
CREATE INDEX IF NOT EXISTS idx_review_requests_reviewer ON review_requests(reviewer);
CREATE INDEX IF NOT EXISTS idx_review_decisions_request ON review_decisions(request_id);
CREATE INDEX IF NOT EXISTS idx_correction_patterns_langs ON correction_patterns(source_lang, target_lang);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveResult(ctx context.Context, result *model.Result) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id, source_lang, target_lang, status, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID, result.SourceLang, result.TargetLang, string(result.Status), string(payload), result.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert result")
}

func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*model.Result, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM results WHERE id = ?`, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("result not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get result %s", id)
	}

	var r model.Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &r, nil
}

func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]model.Result, error) {
	query := `SELECT payload FROM results WHERE 1=1`
	var args []any

	if filter.SourceLang != "" {
		query += ` AND source_lang = ?`
		args = append(args, filter.SourceLang)
	}
	if filter.TargetLang != "" {
		query += ` AND target_lang = ?`
		args = append(args, filter.TargetLang)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		var r model.Result
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

func (s *SQLiteStore) AppendPairScore(ctx context.Context, sourceLang, targetLang string, score float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pair_scores (id, source_lang, target_lang, score, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), sourceLang, targetLang, score, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: append pair score")
}

func (s *SQLiteStore) RecentPairScores(ctx context.Context, sourceLang, targetLang string, limit int) ([]PairScore, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT score, recorded_at FROM pair_scores
		 WHERE source_lang = ? AND target_lang = ?
		 ORDER BY recorded_at DESC LIMIT ?`,
		sourceLang, targetLang, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent pair scores")
	}
	defer rows.Close()

	var scores []PairScore
	for rows.Next() {
		var ps PairScore
		if err := rows.Scan(&ps.Score, &ps.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pair score")
		}
		scores = append(scores, ps)
	}
	return scores, eris.Wrap(rows.Err(), "sqlite: recent pair scores iterate")
}

func (s *SQLiteStore) SaveReviewRequest(ctx context.Context, req *model.ReviewRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal review request")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO review_requests (id, result_id, priority, state, reviewer, payload, requested_at, deadline)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.ResultID, string(req.Priority), string(req.State),
		req.AssignedReviewer, string(payload), req.RequestedAt, req.Deadline,
	)
	return eris.Wrap(err, "sqlite: insert review request")
}

func (s *SQLiteStore) UpdateReviewRequest(ctx context.Context, req *model.ReviewRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal review request")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE review_requests SET priority = ?, state = ?, reviewer = ?, payload = ?, deadline = ? WHERE id = ?`,
		string(req.Priority), string(req.State), req.AssignedReviewer, string(payload), req.Deadline, req.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update review request %s", req.ID)
	}
	return checkRowsAffected(res, "review_request", req.ID)
}

func (s *SQLiteStore) ListReviewRequests(ctx context.Context, filter ReviewFilter) ([]model.ReviewRequest, error) {
	query := `SELECT payload FROM review_requests WHERE 1=1`
	var args []any

	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, string(filter.State))
	}
	if filter.Reviewer != "" {
		query += ` AND reviewer = ?`
		args = append(args, filter.Reviewer)
	}
	query += ` ORDER BY requested_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list review requests")
	}
	defer rows.Close()

	var reqs []model.ReviewRequest
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review request")
		}
		var r model.ReviewRequest
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal review request")
		}
		reqs = append(reqs, r)
	}
	return reqs, eris.Wrap(rows.Err(), "sqlite: list review requests iterate")
}

func (s *SQLiteStore) SaveDecision(ctx context.Context, decision *model.ReviewDecision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal decision")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO review_decisions (id, request_id, reviewer_id, status, payload, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), decision.RequestID, decision.ReviewerID,
		string(decision.Status), string(payload), decision.DecidedAt,
	)
	return eris.Wrap(err, "sqlite: insert decision")
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, requestID string) ([]model.ReviewDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM review_decisions WHERE request_id = ? ORDER BY decided_at ASC`,
		requestID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list decisions")
	}
	defer rows.Close()

	var decisions []model.ReviewDecision
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision")
		}
		var d model.ReviewDecision
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal decision")
		}
		decisions = append(decisions, d)
	}
	return decisions, eris.Wrap(rows.Err(), "sqlite: list decisions iterate")
}

func (s *SQLiteStore) SaveReviewer(ctx context.Context, profile *model.ReviewerProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal reviewer")
	}

	active := 0
	if profile.Active {
		active = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reviewers (id, active, payload) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET active = excluded.active, payload = excluded.payload`,
		profile.ID, active, string(payload),
	)
	return eris.Wrap(err, "sqlite: save reviewer")
}

func (s *SQLiteStore) GetReviewer(ctx context.Context, id string) (*model.ReviewerProfile, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM reviewers WHERE id = ?`, id,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("reviewer not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get reviewer %s", id)
	}

	var p model.ReviewerProfile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal reviewer")
	}
	return &p, nil
}

func (s *SQLiteStore) ListReviewers(ctx context.Context) ([]model.ReviewerProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM reviewers ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviewers")
	}
	defer rows.Close()

	var profiles []model.ReviewerProfile
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan reviewer")
		}
		var p model.ReviewerProfile
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal reviewer")
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "sqlite: list reviewers iterate")
}

func (s *SQLiteStore) SaveCorrectionPattern(ctx context.Context, sourceLang, targetLang string, p model.CorrectionPattern) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal correction pattern")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO correction_patterns (id, source_lang, target_lang, payload, learned_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), sourceLang, targetLang, string(payload), p.LearnedAt,
	)
	return eris.Wrap(err, "sqlite: insert correction pattern")
}

func (s *SQLiteStore) ListCorrectionPatterns(ctx context.Context, sourceLang, targetLang string) ([]model.CorrectionPattern, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM correction_patterns
		 WHERE source_lang = ? AND target_lang = ? ORDER BY learned_at DESC`,
		sourceLang, targetLang,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list correction patterns")
	}
	defer rows.Close()

	var patterns []model.CorrectionPattern
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan correction pattern")
		}
		var p model.CorrectionPattern
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal correction pattern")
		}
		patterns = append(patterns, p)
	}
	return patterns, eris.Wrap(rows.Err(), "sqlite: list correction patterns iterate")
}

func (s *SQLiteStore) SaveAlert(ctx context.Context, alert *model.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal alert")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, status, severity, payload, triggered_at) VALUES (?, ?, ?, ?, ?)`,
		alert.ID, string(alert.Status), string(alert.Severity), string(payload), alert.TriggeredAt,
	)
	return eris.Wrap(err, "sqlite: insert alert")
}

func (s *SQLiteStore) UpdateAlert(ctx context.Context, alert *model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal alert")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = ?, severity = ?, payload = ? WHERE id = ?`,
		string(alert.Status), string(alert.Severity), string(payload), alert.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update alert %s", alert.ID)
	}
	return checkRowsAffected(res, "alert", alert.ID)
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, status model.AlertStatus, limit int) ([]model.Alert, error) {
	query := `SELECT payload FROM alerts WHERE 1=1`
	var args []any

	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY triggered_at DESC`

	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list alerts")
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan alert")
		}
		var a model.Alert
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal alert")
		}
		alerts = append(alerts, a)
	}
	return alerts, eris.Wrap(rows.Err(), "sqlite: list alerts iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
