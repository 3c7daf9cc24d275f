// Package match resolves external event identifier tokens to internal
// event references. Two identifier encodings exist in the wild: a
// fixed-prefix zero-padded numeric token minted by the tagging export
// (evt_000042), and an opaque key used directly as the store's primary
// key. Which one applies depends on the destination store's generation,
// so both live behind the same Resolver contract.
package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pongogo/cotag/internal/model"
)

// ErrInvalidIdentifier marks a token that does not fit the resolver's
// expected encoding. Distinct from storage.ErrNotFound: a well-formed
// token referencing a pruned event is a counted statistic, a malformed
// token is a per-line error.
var ErrInvalidIdentifier = errors.New("match: invalid event identifier")

// DefaultPrefix and DefaultWidth describe the evt_NNNNNN encoding minted
// by the tagging export.
const (
	DefaultPrefix = "evt_"
	DefaultWidth  = 6
)

// Resolver maps an external identifier token to an event reference.
// Implementations are read-only and side-effect free.
type Resolver interface {
	Resolve(ctx context.Context, token string) (model.EventRef, error)
}

// NumericLookup is the slice of the store the prefixed-numeric resolver
// needs: lookup by the numeric source key.
type NumericLookup interface {
	GetEventBySourceID(ctx context.Context, sourceID int64) (model.EventRef, error)
}

// KeyLookup is the slice of the store the opaque-key resolver needs:
// lookup by primary key.
type KeyLookup interface {
	GetEventByID(ctx context.Context, eventID string) (model.EventRef, error)
}

// PrefixedNumeric resolves evt_NNNNNN tokens: the prefix is stripped and
// the remainder parsed as a base-10 integer, then looked up by numeric
// source key. A non-numeric remainder is ErrInvalidIdentifier, never a
// panic.
type PrefixedNumeric struct {
	Prefix string
	Source NumericLookup
}

func (r PrefixedNumeric) Resolve(ctx context.Context, token string) (model.EventRef, error) {
	prefix := r.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	rest, ok := strings.CutPrefix(token, prefix)
	if !ok || rest == "" {
		return model.EventRef{}, fmt.Errorf("%w: %q does not start with %q", ErrInvalidIdentifier, token, prefix)
	}
	sourceID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || sourceID < 0 {
		return model.EventRef{}, fmt.Errorf("%w: %q has a non-numeric suffix", ErrInvalidIdentifier, token)
	}
	return r.Source.GetEventBySourceID(ctx, sourceID)
}

// OpaqueKey resolves a token by direct primary-key lookup.
type OpaqueKey struct {
	Source KeyLookup
}

func (r OpaqueKey) Resolve(ctx context.Context, token string) (model.EventRef, error) {
	if token == "" {
		return model.EventRef{}, fmt.Errorf("%w: empty token", ErrInvalidIdentifier)
	}
	return r.Source.GetEventByID(ctx, token)
}

// FormatPrefixed renders a numeric source key in the evt_NNNNNN encoding
// used by the tagging export.
func FormatPrefixed(sourceID int64) string {
	return fmt.Sprintf("%s%0*d", DefaultPrefix, DefaultWidth, sourceID)
}
