package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/medlingo/transqa/internal/model"
)

// Pool abstracts pgxpool.Pool so postgres store methods can be tested
// with pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hottest store operations.
var preparedStatements = map[string]string{
	"insert_result":      `INSERT INTO results (id, source_lang, target_lang, status, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_result":         `SELECT payload FROM results WHERE id = $1`,
	"insert_pair_score":  `INSERT INTO pair_scores (id, source_lang, target_lang, score, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
	"recent_pair_scores": `SELECT score, recorded_at FROM pair_scores WHERE source_lang = $1 AND target_lang = $2 ORDER BY recorded_at DESC LIMIT $3`,
	"insert_decision":    `INSERT INTO review_decisions (id, request_id, reviewer_id, status, payload, decided_at) VALUES ($1, $2, $3, $4, $5, $6)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS results (
	id          TEXT PRIMARY KEY,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	status      TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pair_scores (
	id          TEXT PRIMARY KEY,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS review_requests (
	id           TEXT PRIMARY KEY,
	result_id    TEXT NOT NULL,
	priority     TEXT NOT NULL,
	state        TEXT NOT NULL DEFAULT 'pending',
	reviewer     TEXT,
	payload      JSONB NOT NULL,
	requested_at TIMESTAMPTZ NOT NULL,
	deadline     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS review_decisions (
	id          TEXT PRIMARY KEY,
	request_id  TEXT NOT NULL REFERENCES review_requests(id),
	reviewer_id TEXT NOT NULL,
	status      TEXT NOT NULL,
	payload     JSONB NOT NULL,
	decided_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reviewers (
	id      TEXT PRIMARY KEY,
	active  BOOLEAN NOT NULL DEFAULT true,
	payload JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS correction_patterns (
	id          TEXT PRIMARY KEY,
	source_lang TEXT NOT NULL,
	target_lang TEXT NOT NULL,
	payload     JSONB NOT NULL,
	learned_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	severity     TEXT NOT NULL,
	payload      JSONB NOT NULL,
	triggered_at TIMESTAMPTZ NOT NULL
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

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) SaveResult(ctx context.Context, result *model.Result) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (id, source_lang, target_lang, status, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		result.ID, result.SourceLang, result.TargetLang, string(result.Status), payload, result.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert result")
}

func (s *PostgresStore) GetResult(ctx context.Context, id string) (*model.Result, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM results WHERE id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("result not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get result %s", id)
	}

	var r model.Result
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &r, nil
}

func (s *PostgresStore) ListResults(ctx context.Context, filter ResultFilter) ([]model.Result, error) {
	query := `SELECT payload FROM results WHERE true`
	args := []any{}
	argIdx := 1

	if filter.SourceLang != "" {
		query += fmt.Sprintf(` AND source_lang = $%d`, argIdx)
		args = append(args, filter.SourceLang)
		argIdx++
	}
	if filter.TargetLang != "" {
		query += fmt.Sprintf(` AND target_lang = $%d`, argIdx)
		args = append(args, filter.TargetLang)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		var r model.Result
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

func (s *PostgresStore) AppendPairScore(ctx context.Context, sourceLang, targetLang string, score float64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pair_scores (id, source_lang, target_lang, score, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), sourceLang, targetLang, score, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: append pair score")
}

func (s *PostgresStore) RecentPairScores(ctx context.Context, sourceLang, targetLang string, limit int) ([]PairScore, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT score, recorded_at FROM pair_scores
		 WHERE source_lang = $1 AND target_lang = $2
		 ORDER BY recorded_at DESC LIMIT $3`,
		sourceLang, targetLang, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent pair scores")
	}
	defer rows.Close()

	var scores []PairScore
	for rows.Next() {
		var ps PairScore
		if err := rows.Scan(&ps.Score, &ps.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan pair score")
		}
		scores = append(scores, ps)
	}
	return scores, eris.Wrap(rows.Err(), "postgres: recent pair scores iterate")
}

func (s *PostgresStore) SaveReviewRequest(ctx context.Context, req *model.ReviewRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal review request")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO review_requests (id, result_id, priority, state, reviewer, payload, requested_at, deadline)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.ResultID, string(req.Priority), string(req.State),
		req.AssignedReviewer, payload, req.RequestedAt, req.Deadline,
	)
	return eris.Wrap(err, "postgres: insert review request")
}

func (s *PostgresStore) UpdateReviewRequest(ctx context.Context, req *model.ReviewRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal review request")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE review_requests SET priority = $1, state = $2, reviewer = $3, payload = $4, deadline = $5 WHERE id = $6`,
		string(req.Priority), string(req.State), req.AssignedReviewer, payload, req.Deadline, req.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update review request %s", req.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("review_request not found: %s", req.ID)
	}
	return nil
}

func (s *PostgresStore) ListReviewRequests(ctx context.Context, filter ReviewFilter) ([]model.ReviewRequest, error) {
	query := `SELECT payload FROM review_requests WHERE true`
	args := []any{}
	argIdx := 1

	if filter.State != "" {
		query += fmt.Sprintf(` AND state = $%d`, argIdx)
		args = append(args, string(filter.State))
		argIdx++
	}
	if filter.Reviewer != "" {
		query += fmt.Sprintf(` AND reviewer = $%d`, argIdx)
		args = append(args, filter.Reviewer)
		argIdx++
	}
	query += ` ORDER BY requested_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list review requests")
	}
	defer rows.Close()

	var reqs []model.ReviewRequest
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan review request")
		}
		var r model.ReviewRequest
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal review request")
		}
		reqs = append(reqs, r)
	}
	return reqs, eris.Wrap(rows.Err(), "postgres: list review requests iterate")
}

func (s *PostgresStore) SaveDecision(ctx context.Context, decision *model.ReviewDecision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal decision")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO review_decisions (id, request_id, reviewer_id, status, payload, decided_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), decision.RequestID, decision.ReviewerID,
		string(decision.Status), payload, decision.DecidedAt,
	)
	return eris.Wrap(err, "postgres: insert decision")
}

func (s *PostgresStore) ListDecisions(ctx context.Context, requestID string) ([]model.ReviewDecision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM review_decisions WHERE request_id = $1 ORDER BY decided_at ASC`,
		requestID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list decisions")
	}
	defer rows.Close()

	var decisions []model.ReviewDecision
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision")
		}
		var d model.ReviewDecision
		if err := json.Unmarshal(payload, &d); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal decision")
		}
		decisions = append(decisions, d)
	}
	return decisions, eris.Wrap(rows.Err(), "postgres: list decisions iterate")
}

func (s *PostgresStore) SaveReviewer(ctx context.Context, profile *model.ReviewerProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal reviewer")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reviewers (id, active, payload) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET active = $2, payload = $3`,
		profile.ID, profile.Active, payload,
	)
	return eris.Wrap(err, "postgres: save reviewer")
}

func (s *PostgresStore) GetReviewer(ctx context.Context, id string) (*model.ReviewerProfile, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM reviewers WHERE id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("reviewer not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get reviewer %s", id)
	}

	var p model.ReviewerProfile
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal reviewer")
	}
	return &p, nil
}

func (s *PostgresStore) ListReviewers(ctx context.Context) ([]model.ReviewerProfile, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM reviewers ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviewers")
	}
	defer rows.Close()

	var profiles []model.ReviewerProfile
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan reviewer")
		}
		var p model.ReviewerProfile
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal reviewer")
		}
		profiles = append(profiles, p)
	}
	return profiles, eris.Wrap(rows.Err(), "postgres: list reviewers iterate")
}

func (s *PostgresStore) SaveCorrectionPattern(ctx context.Context, sourceLang, targetLang string, p model.CorrectionPattern) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal correction pattern")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO correction_patterns (id, source_lang, target_lang, payload, learned_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), sourceLang, targetLang, payload, p.LearnedAt,
	)
	return eris.Wrap(err, "postgres: insert correction pattern")
}

func (s *PostgresStore) ListCorrectionPatterns(ctx context.Context, sourceLang, targetLang string) ([]model.CorrectionPattern, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM correction_patterns
		 WHERE source_lang = $1 AND target_lang = $2 ORDER BY learned_at DESC`,
		sourceLang, targetLang,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list correction patterns")
	}
	defer rows.Close()

	var patterns []model.CorrectionPattern
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan correction pattern")
		}
		var p model.CorrectionPattern
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal correction pattern")
		}
		patterns = append(patterns, p)
	}
	return patterns, eris.Wrap(rows.Err(), "postgres: list correction patterns iterate")
}

func (s *PostgresStore) SaveAlert(ctx context.Context, alert *model.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal alert")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO alerts (id, status, severity, payload, triggered_at) VALUES ($1, $2, $3, $4, $5)`,
		alert.ID, string(alert.Status), string(alert.Severity), payload, alert.TriggeredAt,
	)
	return eris.Wrap(err, "postgres: insert alert")
}

func (s *PostgresStore) UpdateAlert(ctx context.Context, alert *model.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal alert")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE alerts SET status = $1, severity = $2, payload = $3 WHERE id = $4`,
		string(alert.Status), string(alert.Severity), payload, alert.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update alert %s", alert.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("alert not found: %s", alert.ID)
	}
	return nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, status model.AlertStatus, limit int) ([]model.Alert, error) {
	query := `SELECT payload FROM alerts WHERE true`
	args := []any{}
	argIdx := 1

	if status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(status))
		argIdx++
	}
	query += ` ORDER BY triggered_at DESC`

	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list alerts")
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan alert")
		}
		var a model.Alert
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal alert")
		}
		alerts = append(alerts, a)
	}
	return alerts, eris.Wrap(rows.Err(), "postgres: list alerts iterate")
}
