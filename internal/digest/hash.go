package digest

import (
	"crypto/md5"
	"encoding/hex"
)

// ComputeHA1 hashes "user:realm:password". Storage only ever persists the
// result of this call; cleartext passwords never reach the database.
func ComputeHA1(user, realm, password string) string {
	return md5Hex(user + ":" + realm + ":" + password)
}

// ComputeHA2 hashes "METHOD:uri".
func ComputeHA2(method, uri string) string {
	return md5Hex(method + ":" + uri)
}

// ComputeResponse hashes "HA1:nonce:HA2".
func ComputeResponse(ha1, nonce, ha2 string) string {
	return md5Hex(ha1 + ":" + nonce + ":" + ha2)
}

// Verify reports whether cred's response matches the expected response
// for a stored HA1 and request method.
func Verify(ha1, method string, cred *Credentials) bool {
	ha2 := ComputeHA2(method, cred.URI)
	expected := ComputeResponse(ha1, cred.Nonce, ha2)
	return expected == lower(cred.Response)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if 'A' <= b[i] && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
