package shortlink

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func providerServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestShortenSuccess(t *testing.T) {
	var gotAPI, gotURL string
	server := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPI = r.URL.Query().Get("api")
		gotURL = r.URL.Query().Get("url")
		fmt.Fprint(w, `{"status":"success","shortenedUrl":"https://short/abc"}`)
	})

	c := NewClient()
	short, err := c.Shorten(context.Background(), server.URL, "key123", "https://t.me/bot?start=verify_tok")
	if err != nil {
		t.Fatalf("Shorten() error = %v", err)
	}
	if short != "https://short/abc" {
		t.Errorf("Shorten() = %q, want the provider's short url", short)
	}
	if gotAPI != "key123" {
		t.Errorf("api key sent = %q, want key123", gotAPI)
	}
	if gotURL != "https://t.me/bot?start=verify_tok" {
		t.Errorf("long url sent = %q", gotURL)
	}
}

func TestShortenProviderRejects(t *testing.T) {
	server := providerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"error","message":"invalid api key"}`)
	})

	c := NewClient()
	if _, err := c.Shorten(context.Background(), server.URL, "bad", "https://t.me/x"); err == nil {
		t.Error("Shorten() succeeded although the provider rejected the url")
	}
}

func TestShortenHTTPError(t *testing.T) {
	server := providerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	})

	c := NewClient()
	if _, err := c.Shorten(context.Background(), server.URL, "key", "https://t.me/x"); err == nil {
		t.Error("Shorten() succeeded on a 502")
	}
}

func TestShortenGarbageResponse(t *testing.T) {
	server := providerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	})

	c := NewClient()
	if _, err := c.Shorten(context.Background(), server.URL, "key", "https://t.me/x"); err == nil {
		t.Error("Shorten() succeeded on a non-JSON body")
	}
}
