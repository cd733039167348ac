package dav

import (
	"context"
	"io"
	"net/http"

	"github.com/sonroyaalmerol/kcaldavd/internal/acl"
	"github.com/sonroyaalmerol/kcaldavd/internal/caldavxml"
	"github.com/sonroyaalmerol/kcaldavd/internal/props"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

// handlePropfind implements §4.8 step 11, PROPFIND: Depth 0/1 expansion of
// the resolved target into one multistatus response per scope-appropriate
// member, each bucketed into a 200 or 404 propstat per requested property.
func (h *Handlers) handlePropfind(w http.ResponseWriter, r *http.Request, t target) {
	depth := r.Header.Get("Depth")
	if depth != "0" {
		depth = "1"
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.cfg.HTTP.MaxICSBytes+1))
	_ = r.Body.Close()
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	req, perr := caldavxml.Parse(body)
	if perr != nil || req.Type != caldavxml.TypePropfind {
		http.Error(w, "bad propfind body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var entries []msEntry

	switch {
	case t.IsProxy:
		entries = append(entries, h.propfindProxyEntry(t.Requested, t.Effective, t.ProxyGroup, req.Properties))

	case t.Collection == nil:
		pe, err := h.propfindPrincipalEntry(ctx, t, req.Properties)
		if err != nil {
			http.Error(w, "storage error", statusForErr(err))
			return
		}
		entries = append(entries, pe)
		if depth == "1" {
			for _, col := range t.Requested.Collections {
				entries = append(entries, h.propfindCollectionEntry(t, col, req.Properties))
			}
			entries = append(entries, h.propfindProxyEntry(t.Requested, t.Effective, storage.ProxyRead, req.Properties))
			entries = append(entries, h.propfindProxyEntry(t.Requested, t.Effective, storage.ProxyWrite, req.Properties))
		}

	case t.Path.Resource == "":
		entries = append(entries, h.propfindCollectionEntry(t, t.Collection, req.Properties))
		if depth == "1" {
			resources, err := h.store.ListResources(ctx, t.Collection.ID)
			if err != nil {
				h.writeStorageOrNotFound(w, err)
				return
			}
			for _, res := range resources {
				entries = append(entries, h.propfindResourceEntry(t, res, req.Properties))
			}
		}

	default:
		res, err := h.store.LoadResource(ctx, t.Collection.ID, t.Path.Resource)
		if err != nil {
			h.writeStorageOrNotFound(w, err)
			return
		}
		entries = append(entries, h.propfindResourceEntry(t, res, req.Properties))
	}

	if err := writeMultistatus(w, entries); err != nil {
		http.Error(w, "xml encode error", http.StatusInternalServerError)
	}
}

func (h *Handlers) propfindPrincipalEntry(ctx context.Context, t target, reqProps []caldavxml.Property) (msEntry, error) {
	var used int64
	if t.Requested.QuotaBytes > 0 {
		var err error
		used, err = h.quotaUsedBytes(ctx, t.Requested)
		if err != nil {
			return msEntry{}, err
		}
	}
	pctx := props.Context{
		Principal:      t.Requested,
		Effective:      t.Effective,
		QuotaUsedBytes: used,
	}
	return msEntry{
		Href:    principalHref(t.Requested),
		Results: resolveProps(reqProps, props.ScopePrincipal, pctx),
	}, nil
}

func (h *Handlers) propfindCollectionEntry(t target, col *storage.Collection, reqProps []caldavxml.Property) msEntry {
	pctx := props.Context{
		Principal:  t.Requested,
		Collection: col,
		Effective:  t.Effective,
	}
	return msEntry{
		Href:    collectionHref(t.Requested, col),
		Results: resolveProps(reqProps, props.ScopeCollection, pctx),
	}
}

func (h *Handlers) propfindResourceEntry(t target, res *storage.Resource, reqProps []caldavxml.Property) msEntry {
	pctx := props.Context{
		Principal:  t.Requested,
		Collection: t.Collection,
		Resource:   res,
		Effective:  t.Effective,
	}
	return msEntry{
		Href:    collectionHref(t.Requested, t.Collection) + res.URL,
		Results: resolveProps(reqProps, props.ScopeResource, pctx),
	}
}

func (h *Handlers) propfindProxyEntry(requested *storage.Principal, eff acl.Effective, bit storage.ProxyBit, reqProps []caldavxml.Property) msEntry {
	pctx := props.Context{
		Principal:         requested,
		Effective:         eff,
		ProxyGroupBit:     bit,
		ProxyGroupMembers: proxyGroupMembers(requested, bit),
	}
	return msEntry{
		Href:    principalHref(requested) + proxyGroupName(bit) + "/",
		Results: resolveProps(reqProps, props.ScopeProxyGroup, pctx),
	}
}

func proxyGroupMembers(p *storage.Principal, bit storage.ProxyBit) []string {
	var out []string
	for _, e := range p.ForwardProxies {
		if e.Bit == bit {
			out = append(out, e.Name)
		}
	}
	return out
}

func proxyGroupName(bit storage.ProxyBit) string {
	if bit == storage.ProxyWrite {
		return proxyWriteCollection
	}
	return proxyReadCollection
}

func principalHref(p *storage.Principal) string {
	return "/" + p.Name + "/"
}

func collectionHref(p *storage.Principal, col *storage.Collection) string {
	return "/" + p.Name + "/" + col.URL + "/"
}

// resolveProps looks up each requested property at scope and buckets it
// into the 200/404 shape writeMultistatus expects.
func resolveProps(reqProps []caldavxml.Property, scope props.Scope, pctx props.Context) []propResult {
	var out []propResult
	for _, rp := range reqProps {
		if rp.Tag == "unknown" {
			out = append(out, propResult{NS: rp.Namespace, Local: rp.LocalName, Status: http.StatusNotFound})
			continue
		}
		ser, ok := props.Lookup(rp.Tag, scope)
		if !ok {
			out = append(out, propResult{NS: rp.Namespace, Local: rp.LocalName, Status: http.StatusNotFound})
			continue
		}
		val, ok := ser(pctx)
		if !ok {
			out = append(out, propResult{NS: rp.Namespace, Local: rp.LocalName, Status: http.StatusNotFound})
			continue
		}
		out = append(out, propResult{NS: rp.Namespace, Local: rp.LocalName, Value: val, Status: http.StatusOK})
	}
	return out
}
