package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlingo/transqa/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresSaveResult(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO results`)).
		WithArgs("res-1", "en", "es", "passed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveResult(context.Background(), &model.Result{
		ID:         "res-1",
		SourceLang: "en",
		TargetLang: "es",
		Status:     model.StatusPassed,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetResult(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)

		payload, err := json.Marshal(model.Result{ID: "res-1", Status: model.StatusWarning})
		require.NoError(t, err)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload FROM results WHERE id = $1`)).
			WithArgs("res-1").
			WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

		got, err := s.GetResult(context.Background(), "res-1")
		require.NoError(t, err)
		assert.Equal(t, "res-1", got.ID)
		assert.Equal(t, model.StatusWarning, got.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT payload FROM results WHERE id = $1`)).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := s.GetResult(context.Background(), "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresListResults(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	a, _ := json.Marshal(model.Result{ID: "a", Status: model.StatusPassed})
	b, _ := json.Marshal(model.Result{ID: "b", Status: model.StatusPassed})
	mock.ExpectQuery(`SELECT payload FROM results`).
		WithArgs("es", "passed", 100).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(a).AddRow(b))

	got, err := s.ListResults(context.Background(), ResultFilter{
		TargetLang: "es",
		Status:     model.StatusPassed,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPairScores(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO pair_scores`)).
		WithArgs(pgxmock.AnyArg(), "en", "es", 0.82, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.AppendPairScore(context.Background(), "en", "es", 0.82))

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT score, recorded_at FROM pair_scores`).
		WithArgs("en", "es", 20).
		WillReturnRows(pgxmock.NewRows([]string{"score", "recorded_at"}).
			AddRow(0.82, now).
			AddRow(0.75, now.Add(-time.Minute)))

	scores, err := s.RecentPairScores(context.Background(), "en", "es", 0)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 0.82, scores[0].Score)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateReviewRequestNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE review_requests`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateReviewRequest(context.Background(), &model.ReviewRequest{ID: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveReviewer(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reviewers`)).
		WithArgs("rev-1", true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveReviewer(context.Background(), &model.ReviewerProfile{
		ID:     "rev-1",
		Name:   "Ana",
		Active: true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateAlertNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE alerts`)).
		WithArgs("resolved", "error", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateAlert(context.Background(), &model.Alert{
		ID:       "missing",
		Status:   model.AlertResolved,
		Severity: model.AlertError,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS results`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
