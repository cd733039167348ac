package dav

import (
	"context"
	"sync"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

// memStore is a minimal in-memory storage.Store used to exercise the
// dispatcher end to end without a real database, the way the teacher's own
// integration tests exercise a running server rather than mocking pieces of
// it out.
type memStore struct {
	mu sync.Mutex

	nextID int64

	principals map[int64]*storage.Principal
	byName     map[string]int64

	collections map[int64]*storage.Collection
	resources   map[int64]map[string]*storage.Resource

	proxies map[[2]int64]storage.ProxyBit

	nonces map[string]uint64
}

func newMemStore() *memStore {
	return &memStore{
		nextID:      1,
		principals:  map[int64]*storage.Principal{},
		byName:      map[string]int64{},
		collections: map[int64]*storage.Collection{},
		resources:   map[int64]map[string]*storage.Resource{},
		proxies:     map[[2]int64]storage.ProxyBit{},
		nonces:      map[string]uint64{},
	}
}

func (m *memStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memStore) Close() error { return nil }

func (m *memStore) CreatePrincipal(ctx context.Context, name, ha1, email string) (*storage.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[name]; ok {
		return nil, kerr.NewConflictErr(kerr.ExistingResource)
	}
	p := &storage.Principal{ID: m.id(), Name: name, HA1: ha1, Email: email}
	m.principals[p.ID] = p
	m.byName[name] = p.ID
	return p, nil
}

func (m *memStore) loadPrincipalLocked(id int64) *storage.Principal {
	src, ok := m.principals[id]
	if !ok {
		return nil
	}
	cp := *src
	cp.Collections = nil
	for _, c := range m.collections {
		if c.PrincipalID == id {
			cp.Collections = append(cp.Collections, c)
		}
	}
	cp.ForwardProxies = nil
	cp.ReverseProxies = nil
	for k, bit := range m.proxies {
		if k[0] == id {
			cp.ForwardProxies = append(cp.ForwardProxies, storage.ProxyEdge{PrincipalID: k[1], Name: m.principals[k[1]].Name, Bit: bit})
		}
		if k[1] == id {
			cp.ReverseProxies = append(cp.ReverseProxies, storage.ProxyEdge{PrincipalID: k[0], Name: m.principals[k[0]].Name, Bit: bit})
		}
	}
	return &cp
}

func (m *memStore) LoadPrincipalByName(ctx context.Context, name string) (*storage.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byName[name]
	if !ok {
		return nil, kerr.ErrNotFound
	}
	return m.loadPrincipalLocked(id), nil
}

func (m *memStore) LoadPrincipalByEmail(ctx context.Context, email string) (*storage.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.principals {
		if p.Email == email {
			return m.loadPrincipalLocked(p.ID), nil
		}
	}
	return nil, kerr.ErrNotFound
}

func (m *memStore) UpdatePrincipal(ctx context.Context, id int64, ha1, email *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[id]
	if !ok {
		return kerr.ErrNotFound
	}
	if ha1 != nil {
		p.HA1 = *ha1
	}
	if email != nil {
		p.Email = *email
	}
	return nil
}

func (m *memStore) CreateCollection(ctx context.Context, principalID int64, url, displayName, color, description string) (*storage.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collections {
		if c.PrincipalID == principalID && c.URL == url {
			return nil, kerr.NewConflictErr(kerr.ExistingResource)
		}
	}
	c := &storage.Collection{ID: m.id(), PrincipalID: principalID, URL: url, DisplayName: displayName, Color: color, Description: description, CTag: 1}
	m.collections[c.ID] = c
	m.resources[c.ID] = map[string]*storage.Resource{}
	return c, nil
}

func (m *memStore) LoadCollectionByID(ctx context.Context, id int64) (*storage.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[id]
	if !ok {
		return nil, kerr.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) LoadCollectionByURL(ctx context.Context, principalID int64, url string) (*storage.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collections {
		if c.PrincipalID == principalID && c.URL == url {
			cp := *c
			return &cp, nil
		}
	}
	return nil, kerr.ErrNotFound
}

func (m *memStore) ListCollections(ctx context.Context, principalID int64) ([]*storage.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Collection
	for _, c := range m.collections {
		if c.PrincipalID == principalID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpdateCollection(ctx context.Context, id int64, displayName, color, description *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[id]
	if !ok {
		return kerr.ErrNotFound
	}
	if displayName != nil {
		c.DisplayName = *displayName
	}
	if color != nil {
		c.Color = *color
	}
	if description != nil {
		c.Description = *description
	}
	c.CTag++
	return nil
}

func (m *memStore) DeleteCollection(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[id]; !ok {
		return kerr.ErrNotFound
	}
	delete(m.collections, id)
	delete(m.resources, id)
	return nil
}

func (m *memStore) ListResources(ctx context.Context, collectionID int64) ([]*storage.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*storage.Resource
	for _, r := range m.resources[collectionID] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) CreateResource(ctx context.Context, collectionID int64, url, data string) (*storage.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createResourceLocked(collectionID, url, data)
}

func (m *memStore) createResourceLocked(collectionID int64, url, data string) (*storage.Resource, error) {
	bucket, ok := m.resources[collectionID]
	if !ok {
		return nil, kerr.ErrNotFound
	}
	if _, exists := bucket[url]; exists {
		return nil, kerr.NewConflictErr(kerr.ExistingResource)
	}
	etag, _ := storage.NewETag()
	r := &storage.Resource{ID: m.id(), CollectionID: collectionID, URL: url, ETag: etag, Data: data}
	bucket[url] = r
	m.collections[collectionID].CTag++
	cp := *r
	return &cp, nil
}

func (m *memStore) LoadResource(ctx context.Context, collectionID int64, url string) (*storage.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.resources[collectionID]
	if !ok {
		return nil, kerr.ErrNotFound
	}
	r, ok := bucket[url]
	if !ok {
		return nil, kerr.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) UpdateResourceWithETagMatch(ctx context.Context, collectionID int64, url, data string, ifMatch *string) (*storage.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.resources[collectionID]
	if !ok {
		return nil, kerr.ErrNotFound
	}
	existing, found := bucket[url]
	if !found {
		if ifMatch != nil {
			return nil, kerr.NewConflictErr(kerr.MissingIfMatch)
		}
		return m.createResourceLocked(collectionID, url, data)
	}
	if ifMatch == nil {
		return nil, kerr.NewConflictErr(kerr.MissingIfMatch)
	}
	if *ifMatch != existing.ETag {
		return nil, kerr.NewConflictErr(kerr.EtagMismatch)
	}
	etag, _ := storage.NewETag()
	existing.ETag = etag
	existing.Data = data
	m.collections[collectionID].CTag++
	cp := *existing
	return &cp, nil
}

func (m *memStore) DeleteResourceWithETagMatch(ctx context.Context, collectionID int64, url string, ifMatch *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.resources[collectionID]
	if !ok {
		return kerr.ErrNotFound
	}
	existing, found := bucket[url]
	if !found {
		return kerr.ErrNotFound
	}
	if ifMatch != nil && *ifMatch != existing.ETag {
		return kerr.NewConflictErr(kerr.EtagMismatch)
	}
	delete(bucket, url)
	m.collections[collectionID].CTag++
	return nil
}

func (m *memStore) DeleteResourceUnconditional(ctx context.Context, collectionID int64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.resources[collectionID]
	if !ok {
		return kerr.ErrNotFound
	}
	if _, found := bucket[url]; !found {
		return kerr.ErrNotFound
	}
	delete(bucket, url)
	m.collections[collectionID].CTag++
	return nil
}

func (m *memStore) UpsertProxy(ctx context.Context, fromID, toID int64, bit storage.ProxyBit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proxies[[2]int64{fromID, toID}] = bit
	return nil
}

func (m *memStore) RemoveProxy(ctx context.Context, fromID, toID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.proxies, [2]int64{fromID, toID})
	return nil
}

func (m *memStore) LookupNonce(ctx context.Context, value string) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nc, ok := m.nonces[value]
	return nc, ok, nil
}

func (m *memStore) AdvanceNonce(ctx context.Context, value string, newNC uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonces[value] = newNC
	return nil
}

func (m *memStore) IssueNonce(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := storage.NewNonceValue()
	if err != nil {
		return "", err
	}
	m.nonces[v] = 0
	return v, nil
}

func (m *memStore) DeleteNonce(ctx context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nonces, value)
	return nil
}

func (m *memStore) CheckOrSetOwner(ctx context.Context, uid string) error {
	return nil
}

var _ storage.Store = (*memStore)(nil)
