package digest

import (
	"context"
	"testing"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
)

func TestParseHeaderRequiresAllFields(t *testing.T) {
	_, ok := ParseHeader(`Digest username="alice", realm="kcaldavd", nonce="abc"`)
	if ok {
		t.Fatal("expected incomplete header to fail")
	}
}

func TestParseHeaderSkipsUnknownTokens(t *testing.T) {
	h := `Digest username="alice", realm="kcaldavd", nonce="n1", uri="/alice/cal/a.ics", response="deadbeef", nc=00000001, qop=auth, cnonce="xyz", algorithm=MD5-sess`
	cred, ok := ParseHeader(h)
	if !ok {
		t.Fatal("expected header to parse")
	}
	if cred.Username != "alice" || cred.NC != "00000001" {
		t.Fatalf("got %#v", cred)
	}
}

func TestVerifyResponse(t *testing.T) {
	ha1 := ComputeHA1("alice", "kcaldavd", "secret")
	cred := &Credentials{URI: "/alice/cal/a.ics", Nonce: "n1"}
	ha2 := ComputeHA2("GET", cred.URI)
	cred.Response = ComputeResponse(ha1, cred.Nonce, ha2)
	if !Verify(ha1, "GET", cred) {
		t.Fatal("expected response to verify")
	}
	cred.Response = "wrong"
	if Verify(ha1, "GET", cred) {
		t.Fatal("expected wrong response to fail")
	}
}

func TestDigestUnambiguous(t *testing.T) {
	ha1a := ComputeHA1("alice", "kcaldavd", "secret")
	ha1b := ComputeHA1("alice", "kcaldavd", "secret")
	if ha1a != ha1b {
		t.Fatal("HA1 not deterministic")
	}
	r1 := ComputeResponse(ha1a, "n1", ComputeHA2("GET", "/x"))
	r2 := ComputeResponse(ha1a, "n1", ComputeHA2("GET", "/x"))
	if r1 != r2 {
		t.Fatal("response not deterministic")
	}
}

type fakeNonceStore struct {
	nc       map[string]uint64
	issued   int
}

func (f *fakeNonceStore) LookupNonce(ctx context.Context, value string) (uint64, bool, error) {
	nc, ok := f.nc[value]
	return nc, ok, nil
}

func (f *fakeNonceStore) AdvanceNonce(ctx context.Context, value string, newNC uint64) error {
	f.nc[value] = newNC
	return nil
}

func (f *fakeNonceStore) IssueNonce(ctx context.Context) (string, error) {
	f.issued++
	v := "freshnonce"
	f.nc[v] = 0
	return v, nil
}

func TestStepNotFoundIssuesStale(t *testing.T) {
	store := &fakeNonceStore{nc: map[string]uint64{}}
	cred := &Credentials{Nonce: "missing", NC: "00000001"}
	fresh, err := Step(context.Background(), store, cred)
	var ae *kerr.AuthErr
	if !kerr.As(err, &ae) || ae.Kind != kerr.StaleNonce {
		t.Fatalf("expected stale nonce error, got %v", err)
	}
	if fresh == "" {
		t.Fatal("expected a fresh nonce value")
	}
}

func TestStepReplay(t *testing.T) {
	store := &fakeNonceStore{nc: map[string]uint64{"n1": 5}}
	cred := &Credentials{Nonce: "n1", NC: "00000005"}
	_, err := Step(context.Background(), store, cred)
	var ae *kerr.AuthErr
	if !kerr.As(err, &ae) || ae.Kind != kerr.Replay {
		t.Fatalf("expected replay error, got %v", err)
	}
}

func TestStepSuccessAdvancesNC(t *testing.T) {
	store := &fakeNonceStore{nc: map[string]uint64{"n1": 5}}
	cred := &Credentials{Nonce: "n1", NC: "00000006"}
	_, err := Step(context.Background(), store, cred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.nc["n1"] != 7 {
		t.Fatalf("nc = %d, want 7", store.nc["n1"])
	}
	// second call with the same nc must now replay.
	_, err = Step(context.Background(), store, cred)
	var ae *kerr.AuthErr
	if !kerr.As(err, &ae) || ae.Kind != kerr.Replay {
		t.Fatalf("expected replay on reuse, got %v", err)
	}
}
