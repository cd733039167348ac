// Package dav is the HTTP method dispatcher of §4.8: the state machine
// that turns a raw WebDAV request into Digest authentication, path
// parsing, principal/proxy resolution, and a per-method response, built
// on internal/caldavxml, internal/props, internal/digest, internal/acl
// and internal/storage.
package dav

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/kcaldavd/internal/acl"
	"github.com/sonroyaalmerol/kcaldavd/internal/config"
	"github.com/sonroyaalmerol/kcaldavd/internal/digest"
	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

// davCapability is advertised on every successful WebDAV response and in
// response to OPTIONS (§6).
const davCapability = "1, access-control, calendar-access, calendar-proxy"

const (
	proxyReadCollection  = "calendar-proxy-read"
	proxyWriteCollection = "calendar-proxy-write"
)

var allowedMethods = map[string]bool{
	http.MethodOptions: true,
	http.MethodGet:     true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	"PROPFIND":         true,
	"REPORT":           true,
	"PROPPATCH":        true,
	http.MethodPost:    true,
}

// Handlers holds everything the dispatcher needs across requests: the
// storage engine, static configuration, and logger. One value is shared
// by every request goroutine; it carries no per-request mutable state.
type Handlers struct {
	cfg    *config.Config
	store  storage.Store
	logger zerolog.Logger
}

func NewHandlers(cfg *config.Config, store storage.Store, logger zerolog.Logger) *Handlers {
	return &Handlers{cfg: cfg, store: store, logger: logger}
}

// target is everything the dispatcher resolved about the request before
// handing off to a per-method handler: the acting principal (from Digest
// credentials), the requested principal (the path's first segment, which
// may be the same principal), the effective privileges acting holds over
// requested, and — if present — the resolved collection.
type target struct {
	Acting     *storage.Principal
	Requested  *storage.Principal
	Effective  acl.Effective
	Path       parsedPath
	Collection *storage.Collection
	// ProxyGroup is set instead of Collection when the collection segment
	// names one of the two virtual calendar-proxy-read/write collections.
	ProxyGroup storage.ProxyBit
	IsProxy    bool
}

// ServeHTTP is the full state machine of §4.8, steps 1-11.
func (h *Handlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Step 1: reject unknown methods; OPTIONS short-circuits here.
	if !allowedMethods[r.Method] {
		w.Header().Set("Allow", "OPTIONS, GET, PUT, DELETE, PROPFIND, REPORT, PROPPATCH, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Method == http.MethodOptions {
		h.handleOptions(w, r)
		return
	}

	ctx := r.Context()

	// Step 2: Digest auth; step 4-6 (principal load, response verify, nonce
	// step) happen inside authenticate.
	acting, staleNonce, err := h.authenticate(ctx, r)
	if err != nil {
		h.writeAuthFailure(ctx, w, err, staleNonce)
		return
	}

	// Step 3: path parse + segment safety.
	pp, ok := splitPath(r.URL.Path)
	if !ok {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}

	// Step 8: principal segment empty -> redirect to acting principal's home.
	if pp.Principal == "" {
		w.Header().Set("Location", "/"+acting.Name+"/")
		w.WriteHeader(http.StatusTemporaryRedirect)
		return
	}

	// Step 9: resolve requested principal and effective privileges.
	requested := acting
	if pp.Principal != acting.Name {
		requested, err = h.store.LoadPrincipalByName(ctx, pp.Principal)
		if err != nil {
			h.writeStorageOrNotFound(w, err)
			return
		}
	}
	eff := acl.Resolve(requested, acting)

	t := target{
		Acting:    acting,
		Requested: requested,
		Effective: eff,
		Path:      pp,
	}

	// Step 10: collection segment resolution.
	if pp.Collection != "" {
		switch pp.Collection {
		case proxyReadCollection:
			t.IsProxy = true
			t.ProxyGroup = storage.ProxyRead
		case proxyWriteCollection:
			t.IsProxy = true
			t.ProxyGroup = storage.ProxyWrite
		default:
			col, err := h.store.LoadCollectionByURL(ctx, requested.ID, pp.Collection)
			if err != nil {
				h.writeStorageOrNotFound(w, err)
				return
			}
			t.Collection = col
		}
	}

	if !eff.CanRead() && !t.IsProxy {
		// Requested principal granted acting no proxy edge at all; even
		// reads are forbidden (§4.8 step 9).
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("DAV", davCapability)

	// Step 11: per-method dispatch.
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, t)
	case http.MethodPut:
		h.handlePut(w, r, t)
	case http.MethodDelete:
		h.handleDelete(w, r, t)
	case "PROPFIND":
		h.handlePropfind(w, r, t)
	case "REPORT":
		h.handleReport(w, r, t)
	case "PROPPATCH":
		h.handleProppatch(w, r, t)
	case http.MethodPost:
		h.handlePost(w, r, t)
	}
}

func (h *Handlers) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("DAV", davCapability)
	w.Header().Set("Allow", "OPTIONS, GET, PUT, DELETE, PROPFIND, REPORT, PROPPATCH, POST")
	w.WriteHeader(http.StatusOK)
}

// authenticate runs §4.8 steps 2, 4, 5 and 6: parse the Digest header,
// load the acting principal, verify the response, and step the nonce.
// staleNonce is only meaningful when err wraps kerr.StaleNonce.
func (h *Handlers) authenticate(ctx context.Context, r *http.Request) (principal *storage.Principal, staleNonce string, err error) {
	cred, ok := digest.ParseHeader(r.Header.Get("Authorization"))
	if !ok {
		return nil, "", kerr.NewAuthErr(kerr.MissingCreds)
	}

	principal, err = h.store.LoadPrincipalByName(ctx, cred.Username)
	if err != nil {
		if kerr.As(err, new(*kerr.StorageErr)) {
			return nil, "", err
		}
		return nil, "", kerr.NewAuthErr(kerr.BadCreds)
	}

	if !digest.Verify(principal.HA1, r.Method, cred) {
		return nil, "", kerr.NewAuthErr(kerr.BadCreds)
	}

	fresh, err := digest.Step(ctx, h.store, cred)
	if err != nil {
		return nil, fresh, err
	}
	return principal, "", nil
}

// writeAuthFailure renders a 401/403/505 per §7, issuing a fresh
// challenge nonce for the 401 cases.
func (h *Handlers) writeAuthFailure(ctx context.Context, w http.ResponseWriter, err error, staleNonce string) {
	var authErr *kerr.AuthErr
	if kerr.As(err, &authErr) {
		switch authErr.Kind {
		case kerr.Replay:
			http.Error(w, "replay", http.StatusForbidden)
			return
		case kerr.StaleNonce:
			h.writeChallenge(w, staleNonce, true)
			http.Error(w, "stale nonce", http.StatusUnauthorized)
			return
		default:
			nonce, ierr := h.store.IssueNonce(ctx)
			if ierr != nil {
				http.Error(w, "storage error", http.StatusHTTPVersionNotSupported)
				return
			}
			h.writeChallenge(w, nonce, false)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	http.Error(w, "storage error", statusForErr(err))
}

func (h *Handlers) writeChallenge(w http.ResponseWriter, nonce string, stale bool) {
	realm := h.cfg.Digest.Realm
	staleStr := "false"
	if stale {
		staleStr = "true"
	}
	w.Header().Set("WWW-Authenticate",
		`Digest realm="`+realm+`", algorithm="MD5-sess", qop="auth,auth-int", nonce="`+nonce+`", stale=`+staleStr)
}

func (h *Handlers) writeStorageOrNotFound(w http.ResponseWriter, err error) {
	if kerr.As(err, new(*kerr.StorageErr)) {
		http.Error(w, "storage error", statusForErr(err))
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}
