package nfc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octane-tech/nfc-tracker/internal/nfc"
	"github.com/octane-tech/nfc-tracker/internal/platform/db/dbtest"
	"github.com/octane-tech/nfc-tracker/internal/shared"
)

func TestRepositoryTotalsAndPurge(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()
	repo := nfc.NewRepository(pool)
	userID := dbtest.CreateUser(t, pool, "rep@octane-tech.io")

	var companyID int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO companies (code, name) VALUES ('C1', 'Acme') RETURNING id`).Scan(&companyID))

	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
	for _, a := range []struct {
		n   int
		day time.Time
	}{{100, at(2025, 4, 1)}, {20, at(2025, 6, 2)}} {
		_, err := pool.Exec(ctx, `INSERT INTO nfcs (user_id, allocated, day_allocated) VALUES ($1, $2, $3)`, userID, a.n, a.day)
		require.NoError(t, err)
	}
	for _, s := range []struct {
		n   int
		day time.Time
	}{{40, at(2025, 5, 31)}, {3, at(2025, 6, 1)}, {2, at(2025, 6, 30)}, {1, at(2025, 7, 1)}} {
		_, err := pool.Exec(ctx, `INSERT INTO acknowledgments
(user_id, company_id, cards_submitted, submission_type, delivery_method, state_time, image, submission_date)
VALUES ($1, $2, $3, 'replacement', 'aramex', 'on_time', 'https://example.com/x.png', $4)`, userID, companyID, s.n, s.day)
		require.NoError(t, err)
	}

	june, err := shared.ParseMonth("2025-06", time.UTC)
	require.NoError(t, err)

	totals, err := repo.Totals(ctx, userID, june)
	require.NoError(t, err)
	assert.Equal(t, nfc.Totals{AllocatedCurrent: 20, SubmittedCurrent: 5, AllocatedPrior: 100, SubmittedPrior: 40}, totals)

	empty, err := repo.Totals(ctx, userID+1000, june)
	require.NoError(t, err)
	assert.Equal(t, nfc.Totals{}, empty)

	history, err := repo.History(ctx, userID, june)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].CardsSubmitted)
	assert.Equal(t, "Acme", history[0].CompanyName)

	latest, ok, err := repo.LatestAllocation(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Equal(at(2025, 6, 2)))

	targets, err := repo.PurgeTargets(ctx, june)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	deleted, err := repo.DeleteAcknowledgments(ctx, []int64{targets[0].ID, targets[1].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	none, err := repo.DeleteAcknowledgments(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, none)

	var left int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM acknowledgments`).Scan(&left))
	assert.Equal(t, 2, left)
}
