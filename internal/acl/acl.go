// Package acl resolves the effective privileges an acting principal holds
// over a requested principal's collections and resources — ownership, or
// whatever proxy edge the requested principal has granted (§4.8 step 9).
package acl

import "github.com/sonroyaalmerol/kcaldavd/internal/storage"

// Effective mirrors the privilege tokens the glossary lists for
// current-user-privilege-set: read, write, bind, unbind.
type Effective struct {
	Read   bool
	Write  bool
	Bind   bool
	Unbind bool
}

func (e Effective) CanRead() bool   { return e.Read }
func (e Effective) CanWrite() bool  { return e.Write }
func (e Effective) CanBind() bool   { return e.Bind }
func (e Effective) CanUnbind() bool { return e.Unbind }

var full = Effective{Read: true, Write: true, Bind: true, Unbind: true}
var readOnly = Effective{Read: true}

// Resolve computes acting's effective privileges over requested's
// resources. The owner always holds full privileges; otherwise it depends
// on the proxy edge requested granted to acting, if any.
func Resolve(requested, acting *storage.Principal) Effective {
	if requested.ID == acting.ID {
		return full
	}
	switch proxyBit(requested, acting) {
	case storage.ProxyWrite:
		return full
	case storage.ProxyRead:
		return readOnly
	default:
		return Effective{}
	}
}

func proxyBit(requested, acting *storage.Principal) storage.ProxyBit {
	for _, e := range requested.ForwardProxies {
		if e.PrincipalID == acting.ID {
			return e.Bit
		}
	}
	for _, e := range acting.ReverseProxies {
		if e.PrincipalID == requested.ID {
			return e.Bit
		}
	}
	return storage.ProxyNone
}
