package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongogo/cotag/internal/model"
	"github.com/pongogo/cotag/internal/storage"
)

type numericFake map[int64]string

func (f numericFake) GetEventBySourceID(ctx context.Context, sourceID int64) (model.EventRef, error) {
	id, ok := f[sourceID]
	if !ok {
		return model.EventRef{}, storage.ErrNotFound
	}
	return model.EventRef{EventID: id, SourceEventID: &sourceID}, nil
}

type keyFake map[string]bool

func (f keyFake) GetEventByID(ctx context.Context, eventID string) (model.EventRef, error) {
	if !f[eventID] {
		return model.EventRef{}, storage.ErrNotFound
	}
	return model.EventRef{EventID: eventID}, nil
}

func TestPrefixedNumeric_Resolve(t *testing.T) {
	r := PrefixedNumeric{Source: numericFake{42: "row-42"}}

	ref, err := r.Resolve(context.Background(), "evt_000042")
	require.NoError(t, err)
	assert.Equal(t, "row-42", ref.EventID)
	require.NotNil(t, ref.SourceEventID)
	assert.Equal(t, int64(42), *ref.SourceEventID)
}

func TestPrefixedNumeric_UnpaddedSuffix(t *testing.T) {
	// Parsing is numeric, not positional: evt_42 and evt_000042 are the
	// same key.
	r := PrefixedNumeric{Source: numericFake{42: "row-42"}}

	ref, err := r.Resolve(context.Background(), "evt_42")
	require.NoError(t, err)
	assert.Equal(t, "row-42", ref.EventID)
}

func TestPrefixedNumeric_MalformedTokens(t *testing.T) {
	r := PrefixedNumeric{Source: numericFake{}}

	for _, token := range []string{"evt_00004X", "evt_", "000042", "event_42", "", "evt_-1"} {
		_, err := r.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, "token %q", token)
	}
}

func TestPrefixedNumeric_NotFoundPassesThrough(t *testing.T) {
	r := PrefixedNumeric{Source: numericFake{}}

	_, err := r.Resolve(context.Background(), "evt_999999")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPrefixedNumeric_CustomPrefix(t *testing.T) {
	r := PrefixedNumeric{Prefix: "msg_", Source: numericFake{7: "row-7"}}

	ref, err := r.Resolve(context.Background(), "msg_000007")
	require.NoError(t, err)
	assert.Equal(t, "row-7", ref.EventID)

	_, err = r.Resolve(context.Background(), "evt_000007")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestOpaqueKey_Resolve(t *testing.T) {
	r := OpaqueKey{Source: keyFake{"01J8ZC3F9G": true}}

	ref, err := r.Resolve(context.Background(), "01J8ZC3F9G")
	require.NoError(t, err)
	assert.Equal(t, "01J8ZC3F9G", ref.EventID)

	_, err = r.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestFormatPrefixed(t *testing.T) {
	assert.Equal(t, "evt_000042", FormatPrefixed(42))
	assert.Equal(t, "evt_000001", FormatPrefixed(1))
	assert.Equal(t, "evt_1000000", FormatPrefixed(1000000))
}
