package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type assertError string

func (e assertError) Error() string { return string(e) }

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(r *http.Request)
		resolver CountryLookup
		want     string
	}{
		{
			name: "header precedence",
			setup: func(r *http.Request) {
				r.Header.Set("X-Country-Code", "us")
				r.Header.Set("CF-IPCountry", "id")
			},
			want: "US",
		},
		{
			name: "malformed header ignored",
			setup: func(r *http.Request) {
				r.Header.Set("CF-IPCountry", "XX-unknown")
				r.Header.Set("Accept-Language", "en-GB,en;q=0.9")
			},
			want: "GB",
		},
		{
			name: "resolver before accept-language",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-GB")
			},
			resolver: func(ip string) (string, error) {
				if ip != "203.0.113.4" {
					return "", assertError("unexpected ip " + ip)
				}
				return "my", nil
			},
			want: "MY",
		},
		{
			name: "resolver error falls back to accept-language",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "pt-BR;q=0.9")
			},
			resolver: func(string) (string, error) {
				return "", assertError("boom")
			},
			want: "BR",
		},
		{
			name: "language without region",
			setup: func(r *http.Request) {
				r.Header.Set("Accept-Language", "id;q=0.8")
			},
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			if tc.setup != nil {
				tc.setup(req)
			}
			got := ResolveCountry(req, tc.resolver)
			if got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCountryMiddleware(t *testing.T) {
	var got string
	h := Country(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CountryFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-IPCountry", "de")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "DE" {
		t.Fatalf("CountryFromContext() = %q, want DE", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "garbage, 198.51.100.7")
	if ip := ClientIP(req); ip != "198.51.100.7" {
		t.Fatalf("ClientIP() = %q", ip)
	}
	req.Header.Del("X-Forwarded-For")
	if ip := ClientIP(req); ip != "10.0.0.1" {
		t.Fatalf("ClientIP() = %q", ip)
	}
}
