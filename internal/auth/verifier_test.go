package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestDevModeToken(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	p, err := v.Verify("acme:admin")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Tenant != "acme" || p.Role != "admin" {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if !p.IsAdmin() {
		t.Fatal("admin role should report IsAdmin")
	}
	if _, err := v.Verify("notoken"); err == nil {
		t.Fatal("expected error for malformed dev token")
	}
}

func signHS256(t *testing.T, secret []byte, header, payload string) string {
	t.Helper()
	enc := base64.RawURLEncoding
	h := enc.EncodeToString([]byte(header))
	p := enc.EncodeToString([]byte(payload))
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(h + "." + p))
	return h + "." + p + "." + enc.EncodeToString(mac.Sum(nil))
}

func TestHMACMode(t *testing.T) {
	secret := []byte("sekrit")
	v := &Verifier{Mode: "hmac", HMACSecret: secret, TenantClaim: "tenant", RoleClaim: "role"}
	tok := signHS256(t, secret, `{"alg":"HS256","typ":"JWT"}`, `{"tenant":"acme","role":"User"}`)
	p, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Tenant != "acme" || p.Role != "user" {
		t.Fatalf("unexpected principal: %+v", p)
	}

	bad := signHS256(t, []byte("wrong"), `{"alg":"HS256"}`, `{"tenant":"acme"}`)
	if _, err := v.Verify(bad); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestHMACMissingTenant(t *testing.T) {
	secret := []byte("sekrit")
	v := &Verifier{Mode: "hmac", HMACSecret: secret, TenantClaim: "tenant", RoleClaim: "role"}
	tok := signHS256(t, secret, `{"alg":"HS256"}`, `{"role":"admin"}`)
	if _, err := v.Verify(tok); err == nil {
		t.Fatal("expected error for missing tenant claim")
	}
}
