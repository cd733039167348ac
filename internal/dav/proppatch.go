package dav

import (
	"io"
	"net/http"

	"github.com/sonroyaalmerol/kcaldavd/internal/caldavxml"
)

// writableProperties is the PROPPATCH-settable subset of §4.7: collection
// metadata only. Every other recognized or unknown property is rejected
// 404, matching the "absent serializer" rule PROPFIND uses.
var writableProperties = map[string]bool{
	tagKey(caldavxml.NSDav, "displayname"):          true,
	tagKey(caldavxml.NSAppleICal, "calendar-color"): true,
	tagKey(caldavxml.NSCalDAV, "calendar-description"): true,
}

func tagKey(ns, local string) string { return "{" + ns + "}" + local }

// handleProppatch implements §4.8 step 11, PROPPATCH: set operations on
// the writable collection-metadata subset, committed in a single
// storage.UpdateCollection call only if at least one field validated.
func (h *Handlers) handleProppatch(w http.ResponseWriter, r *http.Request, t target) {
	if t.Collection == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if !t.Effective.CanWrite() {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.HTTP.MaxICSBytes+1))
	_ = r.Body.Close()
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	req, perr := caldavxml.Parse(body)
	if perr != nil || req.Type != caldavxml.TypePropertyUpdate {
		http.Error(w, "bad propertyupdate body", http.StatusBadRequest)
		return
	}

	var displayName, color, description *string
	var results []propResult

	for _, p := range req.Properties {
		if p.Tag == "unknown" || !writableProperties[p.Tag] {
			results = append(results, propResult{NS: p.Namespace, Local: p.LocalName, Status: http.StatusNotFound})
			continue
		}
		if p.Validity == caldavxml.Invalid {
			results = append(results, propResult{NS: p.Namespace, Local: p.LocalName, Status: http.StatusConflict})
			continue
		}

		value := p.Value
		if p.Op == caldavxml.OpRemove {
			value = ""
		}
		switch p.Tag {
		case tagKey(caldavxml.NSDav, "displayname"):
			displayName = &value
		case tagKey(caldavxml.NSAppleICal, "calendar-color"):
			color = &value
		case tagKey(caldavxml.NSCalDAV, "calendar-description"):
			description = &value
		}
		results = append(results, propResult{NS: p.Namespace, Local: p.LocalName, Status: http.StatusOK})
	}

	if displayName != nil || color != nil || description != nil {
		if err := h.store.UpdateCollection(r.Context(), t.Collection.ID, displayName, color, description); err != nil {
			http.Error(w, "storage error", statusForErr(err))
			return
		}
	}

	entry := msEntry{Href: collectionHref(t.Requested, t.Collection), Results: results}
	if err := writeMultistatus(w, []msEntry{entry}); err != nil {
		http.Error(w, "xml encode error", http.StatusInternalServerError)
	}
}
