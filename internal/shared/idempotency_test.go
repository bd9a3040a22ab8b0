package shared

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

func TestValidateIdempotencyKey(t *testing.T) {
	assert.NoError(t, validateKey("acknowledgment:1", "abc"))
	assert.ErrorIs(t, validateKey("acknowledgment:1", ""), httpx.ErrValidation)
	assert.ErrorIs(t, validateKey("acknowledgment:1", strings.Repeat("k", MaxIdempotencyKeyLen+1)), httpx.ErrValidation)
	assert.Error(t, validateKey("", "abc"))
}

func TestNilIdempotencyStore(t *testing.T) {
	var store *IdempotencyStore
	assert.Error(t, store.Claim(context.Background(), "s", "k"))
	assert.NoError(t, store.Release(context.Background(), "s", "k"))
	n, err := store.Cleanup(context.Background(), time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, n)
}
