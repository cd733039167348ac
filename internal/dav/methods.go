package dav

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/pkg/ical"
)

// handleGet serves a resource's raw iCalendar text (§4.8 step 11, GET).
func (h *Handlers) handleGet(w http.ResponseWriter, r *http.Request, t target) {
	if t.Collection == nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if t.Path.Resource == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	res, err := h.store.LoadResource(r.Context(), t.Collection.ID, t.Path.Resource)
	if err != nil {
		h.writeStorageOrNotFound(w, err)
		return
	}

	if inm := trimETag(r.Header.Get("If-None-Match")); inm != "" && inm == res.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("ETag", quoteETag(res.ETag))
	if !res.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", res.UpdatedAt.UTC().Format(time.RFC1123))
	}
	_, _ = io.WriteString(w, res.Data)
}

// handlePut creates or replaces a resource (§4.8 step 11, PUT). Only the
// conditional-header translation and the quota check happen here; ETag
// matching and CTag bumping are enforced transactionally by
// storage.UpdateResourceWithETagMatch.
func (h *Handlers) handlePut(w http.ResponseWriter, r *http.Request, t target) {
	if t.Collection == nil || t.Path.Resource == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if !t.Effective.CanWrite() {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	maxBytes := h.cfg.HTTP.MaxICSBytes
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	_ = r.Body.Close()
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if maxBytes > 0 && int64(len(raw)) > maxBytes {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	root, perr := ical.Parse(raw, "")
	if perr != nil {
		http.Error(w, "invalid ical", http.StatusBadRequest)
		return
	}
	if len(root.ChildrenOfKind(ical.KindVEvent)) == 0 {
		http.Error(w, "calendar object must contain a VEVENT", http.StatusBadRequest)
		return
	}

	existing, _ := h.store.LoadResource(r.Context(), t.Collection.ID, t.Path.Resource)

	if t.Requested.QuotaBytes > 0 {
		used, err := h.quotaUsedBytes(r.Context(), t.Requested)
		if err != nil {
			http.Error(w, "storage error", statusForErr(err))
			return
		}
		if existing != nil {
			used -= int64(len(existing.Data))
		}
		if used+int64(len(raw)) > t.Requested.QuotaBytes {
			http.Error(w, "quota exceeded", http.StatusInsufficientStorage)
			return
		}
	}

	var ifMatch *string
	if v := trimETag(r.Header.Get("If-Match")); v != "" {
		ifMatch = &v
	}

	res, err := h.store.UpdateResourceWithETagMatch(r.Context(), t.Collection.ID, t.Path.Resource, string(raw), ifMatch)
	if err != nil {
		http.Error(w, "conflict", statusForErr(err))
		return
	}

	w.Header().Set("ETag", quoteETag(res.ETag))
	if existing == nil {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleDelete removes a resource (honoring If-Match) or recursively
// deletes a collection (§4.8 step 11, DELETE).
func (h *Handlers) handleDelete(w http.ResponseWriter, r *http.Request, t target) {
	if !t.Effective.CanWrite() {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if t.Collection == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if t.Path.Resource == "" {
		if err := h.store.DeleteCollection(r.Context(), t.Collection.ID); err != nil {
			h.writeStorageOrNotFound(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var ifMatch *string
	if v := trimETag(r.Header.Get("If-Match")); v != "" {
		ifMatch = &v
	}
	if err := h.store.DeleteResourceWithETagMatch(r.Context(), t.Collection.ID, t.Path.Resource, ifMatch); err != nil {
		if kerr.As(err, new(*kerr.ConflictErr)) {
			http.Error(w, "precondition failed", statusForErr(err))
			return
		}
		h.writeStorageOrNotFound(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePost implements §4.8 step 11, POST: undefined on a collection,
// refused on a resource.
func (h *Handlers) handlePost(w http.ResponseWriter, r *http.Request, t target) {
	if t.Path.Resource != "" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

// trimETag strips the surrounding quotes an ETag/If-Match/If-None-Match
// header carries; "*" is returned unchanged to the caller since it is
// never itself a stored ETag value.
func trimETag(v string) string {
	return strings.Trim(v, `"`)
}

func quoteETag(v string) string {
	return `"` + v + `"`
}
