package digest

import (
	"context"
	"strconv"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
)

// NonceStore is the slice of the storage engine the nonce lifecycle needs.
// Both lookup/advance and eviction-on-create run inside the storage
// engine's own IMMEDIATE transactions (§4.6); digest only orchestrates the
// three-step state machine described in §4.5.
type NonceStore interface {
	LookupNonce(ctx context.Context, value string) (nc uint64, found bool, err error)
	AdvanceNonce(ctx context.Context, value string, newNC uint64) error
	IssueNonce(ctx context.Context) (value string, err error)
}

// Step runs the nonce lifecycle for one authenticated request. On success
// it returns ("", nil) and the store's nc has been advanced. On failure it
// returns a *kerr.AuthErr (BadCreds for a non-hex nc; StaleNonce, with the
// freshly issued nonce value as freshNonce; or Replay) or a storage error.
func Step(ctx context.Context, store NonceStore, cred *Credentials) (freshNonce string, err error) {
	clientNC, perr := strconv.ParseUint(cred.NC, 16, 64)
	if perr != nil {
		return "", kerr.NewAuthErr(kerr.BadCreds)
	}

	storedNC, found, err := store.LookupNonce(ctx, cred.Nonce)
	if err != nil {
		return "", err
	}
	if !found {
		fresh, err := store.IssueNonce(ctx)
		if err != nil {
			return "", err
		}
		return fresh, kerr.NewAuthErr(kerr.StaleNonce)
	}
	if clientNC <= storedNC {
		return "", kerr.NewAuthErr(kerr.Replay)
	}
	if err := store.AdvanceNonce(ctx, cred.Nonce, clientNC+1); err != nil {
		return "", err
	}
	return "", nil
}
