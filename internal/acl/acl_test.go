package acl

import (
	"testing"

	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
)

func TestResolveOwner(t *testing.T) {
	alice := &storage.Principal{ID: 1}
	e := Resolve(alice, alice)
	if !e.CanRead() || !e.CanWrite() || !e.CanBind() || !e.CanUnbind() {
		t.Fatalf("owner should hold full privileges, got %#v", e)
	}
}

func TestResolveNoEdge(t *testing.T) {
	alice := &storage.Principal{ID: 1}
	bob := &storage.Principal{ID: 2}
	e := Resolve(alice, bob)
	if e.CanRead() || e.CanWrite() {
		t.Fatalf("expected no access without a proxy edge, got %#v", e)
	}
}

func TestResolveReadProxy(t *testing.T) {
	alice := &storage.Principal{ID: 1, ForwardProxies: []storage.ProxyEdge{{PrincipalID: 2, Bit: storage.ProxyRead}}}
	bob := &storage.Principal{ID: 2}
	e := Resolve(alice, bob)
	if !e.CanRead() || e.CanWrite() {
		t.Fatalf("expected read-only, got %#v", e)
	}
}

func TestResolveWriteProxy(t *testing.T) {
	alice := &storage.Principal{ID: 1, ForwardProxies: []storage.ProxyEdge{{PrincipalID: 2, Bit: storage.ProxyWrite}}}
	bob := &storage.Principal{ID: 2}
	e := Resolve(alice, bob)
	if !e.CanRead() || !e.CanWrite() || !e.CanBind() || !e.CanUnbind() {
		t.Fatalf("expected full access via write proxy, got %#v", e)
	}
}

func TestResolveViaReverseEdge(t *testing.T) {
	alice := &storage.Principal{ID: 1}
	bob := &storage.Principal{ID: 2, ReverseProxies: []storage.ProxyEdge{{PrincipalID: 1, Bit: storage.ProxyRead}}}
	e := Resolve(alice, bob)
	if !e.CanRead() || e.CanWrite() {
		t.Fatalf("expected read-only resolved from the delegate's own view, got %#v", e)
	}
}
