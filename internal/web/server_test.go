package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"autofilter-bot/internal/models"
)

type fakeMedia struct {
	recs []models.MediaRecord
}

func (f *fakeMedia) Recent(_ context.Context, limit int) ([]models.MediaRecord, error) {
	if len(f.recs) > limit {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

func (f *fakeMedia) Count(_ context.Context) (int64, error) {
	return int64(len(f.recs)), nil
}

func TestHandleFeed(t *testing.T) {
	media := &fakeMedia{recs: []models.MediaRecord{
		{FileKey: "key1", FileName: "Some Movie 2024", FileSize: 1024, MimeType: "video/mp4", CreatedAt: time.Now()},
	}}
	s := New(media, "testbot", "8080", nil)

	rec := httptest.NewRecorder()
	s.handleFeed(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "rss+xml") {
		t.Errorf("Content-Type = %q, want rss+xml", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Some Movie 2024") {
		t.Error("feed does not list the indexed file")
	}
	// Feed links carry group id 0, the form the start handler resolves
	// against the requester's default settings.
	if !strings.Contains(body, "https://t.me/testbot?start=file_0_key1") {
		t.Errorf("feed link missing or malformed in:\n%s", body)
	}
}

func TestHandleHealth(t *testing.T) {
	s := New(&fakeMedia{}, "testbot", "8080", nil)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != `{"status":"ok"}` {
		t.Errorf("body = %q", body)
	}
}

func TestHandleRoot(t *testing.T) {
	media := &fakeMedia{recs: make([]models.MediaRecord, 3)}
	s := New(media, "testbot", "8080", nil)

	rec := httptest.NewRecorder()
	s.handleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Indexed files: 3") {
		t.Error("info page does not show the index size")
	}
}
