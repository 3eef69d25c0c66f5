package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/harperreed/wellness/internal/clock"
)

const testClientID = "client-123.apps.googleusercontent.com"

type certServer struct {
	*httptest.Server
	key     *rsa.PrivateKey
	fetches atomic.Int32
}

func newCertServer(t *testing.T) *certServer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	certPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	cs := &certServer{key: key}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.fetches.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=600")
		_ = json.NewEncoder(w).Encode(map[string]string{"kid-1": certPEM})
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *certServer) sign(t *testing.T, claims *googleClaims, kid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(cs.key)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func validGoogleClaims(now time.Time) *googleClaims {
	return &googleClaims{
		Email:         "g@example.com",
		EmailVerified: true,
		Name:          "Gee",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   "1234567890",
			Audience:  jwt.ClaimStrings{testClientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestGoogleVerify(t *testing.T) {
	cs := newCertServer(t)
	clk := clock.NewStub(time.Now())
	v := NewGoogleVerifier(testClientID, cs.URL, cs.Client(), clk)

	id, err := v.Verify(context.Background(), cs.sign(t, validGoogleClaims(clk.Now()), "kid-1"))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.Email != "g@example.com" || id.Name != "Gee" || id.Subject != "1234567890" {
		t.Errorf("unexpected identity: %+v", id)
	}

	// Second verification uses cached certificates.
	if _, err := v.Verify(context.Background(), cs.sign(t, validGoogleClaims(clk.Now()), "kid-1")); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got := cs.fetches.Load(); got != 1 {
		t.Errorf("certs fetched %d times, want 1", got)
	}

	clk.Advance(11 * time.Minute)
	if _, err := v.Verify(context.Background(), cs.sign(t, validGoogleClaims(clk.Now()), "kid-1")); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got := cs.fetches.Load(); got != 2 {
		t.Errorf("certs fetched %d times after max-age, want 2", got)
	}
}

func TestGoogleVerifyRejects(t *testing.T) {
	cs := newCertServer(t)
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*googleClaims)
		kid    string
	}{
		{"wrong audience", func(c *googleClaims) { c.Audience = jwt.ClaimStrings{"someone-else"} }, "kid-1"},
		{"wrong issuer", func(c *googleClaims) { c.Issuer = "https://evil.example.com" }, "kid-1"},
		{"expired", func(c *googleClaims) { c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute)) }, "kid-1"},
		{"no email", func(c *googleClaims) { c.Email = "" }, "kid-1"},
		{"unknown key", func(c *googleClaims) {}, "kid-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewGoogleVerifier(testClientID, cs.URL, cs.Client(), clock.NewStub(now))
			claims := validGoogleClaims(now)
			tt.mutate(claims)

			_, err := v.Verify(context.Background(), cs.sign(t, claims, tt.kid))
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestGoogleVerifyEmptyToken(t *testing.T) {
	v := NewGoogleVerifier(testClientID, "http://unused.invalid", nil, nil)
	if _, err := v.Verify(context.Background(), " "); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestMaxAge(t *testing.T) {
	tests := map[string]time.Duration{
		"public, max-age=19835, must-revalidate": 19835 * time.Second,
		"no-cache":                               defaultCertsTTL,
		"":                                       defaultCertsTTL,
		"max-age=abc":                            defaultCertsTTL,
	}
	for header, want := range tests {
		if got := maxAge(header); got != want {
			t.Errorf("maxAge(%q) = %v, want %v", header, got, want)
		}
	}
}
