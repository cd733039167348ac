package dav

import (
	"context"

	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

// quotaUsedBytes sums stored resource sizes across every collection a
// principal owns (§4.7's quota-used-bytes, and the PUT-time 507 check of
// §4.8). A zero/negative storage.Principal.QuotaBytes means unlimited;
// callers should skip this round-trip entirely in that case.
func (h *Handlers) quotaUsedBytes(ctx context.Context, p *storage.Principal) (int64, error) {
	var total int64
	for _, col := range p.Collections {
		resources, err := h.store.ListResources(ctx, col.ID)
		if err != nil {
			return 0, err
		}
		for _, r := range resources {
			total += int64(len(r.Data))
		}
	}
	return total, nil
}
