package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testSecret, 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, expires, err := svc.Issue("user-1", "tenant-a", "dpo", TokenAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expiry in the past: %v", expires)
	}

	claims, err := svc.Verify(token, TokenAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.TenantID != "tenant-a" || claims.Role != "dpo" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Issuer != Issuer {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("jti not set")
	}
}

func TestVerifyRejectsWrongType(t *testing.T) {
	svc, _ := NewTokenService(testSecret, time.Minute, time.Hour)
	refresh, _, err := svc.Issue("u", "t", "admin", TokenRefresh)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(refresh, TokenAccess); !errors.Is(err, ErrWrongType) {
		t.Fatalf("err = %v, want ErrWrongType", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc, _ := NewTokenService(testSecret, time.Minute, time.Hour)
	base := time.Now()
	svc.now = func() time.Time { return base }
	token, _, err := svc.Issue("u", "t", "admin", TokenAccess)
	if err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := svc.Verify(token, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken after expiry", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	a, _ := NewTokenService(testSecret, time.Minute, time.Hour)
	b, _ := NewTokenService("another-secret-another-secret-32", time.Minute, time.Hour)
	token, _, err := b.Issue("u", "t", "admin", TokenAccess)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Verify(token, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken for foreign signature", err)
	}
}

func TestWeakSecretRejected(t *testing.T) {
	if _, err := NewTokenService("short", time.Minute, time.Hour); !errors.Is(err, ErrWeakSecret) {
		t.Fatalf("err = %v, want ErrWeakSecret", err)
	}
}

func TestHasherRoundTripAndRehash(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("mật khẩu bí mật")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Verify(hash, "mật khẩu bí mật"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := h.Verify(hash, "sai mật khẩu"); !errors.Is(err, ErrBadCredential) {
		t.Fatalf("err = %v, want ErrBadCredential", err)
	}

	stronger := NewHasher(6)
	if !stronger.NeedsRehash(hash) {
		t.Fatal("raised cost must trigger rehash")
	}
	if h.NeedsRehash(hash) {
		t.Fatal("same cost must not trigger rehash")
	}
	if !h.NeedsRehash("not-a-bcrypt-hash") {
		t.Fatal("garbage hash must trigger rehash")
	}
}

// fakeStore scripts blacklist backend behavior.
type fakeStore struct {
	entries map[string]struct{}
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]struct{}{}}
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.entries[key] = struct{}{}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStore) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.entries[k]; ok {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeStore) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func TestBlacklistRevokeAndCheck(t *testing.T) {
	store := newFakeStore()
	bl := NewBlacklist(store)
	ctx := context.Background()

	if bl.IsBlacklisted(ctx, "token-a") {
		t.Fatal("fresh token must not be blacklisted")
	}
	if err := bl.Revoke(ctx, "token-a", time.Minute); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !bl.IsBlacklisted(ctx, "token-a") {
		t.Fatal("revoked token must be blacklisted")
	}
	if bl.IsBlacklisted(ctx, "token-b") {
		t.Fatal("other tokens unaffected")
	}
}

func TestBlacklistExpiredTokenNoop(t *testing.T) {
	store := newFakeStore()
	bl := NewBlacklist(store)
	if err := bl.Revoke(context.Background(), "stale", -time.Second); err != nil {
		t.Fatalf("Revoke of expired token: %v", err)
	}
	if len(store.entries) != 0 {
		t.Fatal("expired token must not be stored")
	}
}

// Fail-secure: any store error denies the token.
func TestBlacklistFailSecure(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	bl := NewBlacklist(store)
	if !bl.IsBlacklisted(context.Background(), "any-token") {
		t.Fatal("store failure must deny the token")
	}
	if err := bl.Ping(context.Background()); err == nil {
		t.Fatal("ping must surface store failure")
	}
}
