package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

type memCursor struct {
	seen map[string]bool
}

func newMemCursor() *memCursor {
	return &memCursor{seen: make(map[string]bool)}
}

func (c *memCursor) Seen(_ context.Context, feed, itemID string) (bool, error) {
	return c.seen[feed+"/"+itemID], nil
}

func (c *memCursor) MarkSeen(_ context.Context, feed string, itemIDs ...string) error {
	for _, id := range itemIDs {
		c.seen[feed+"/"+id] = true
	}
	return nil
}

type recordingAnnouncer struct {
	announced []string
	fail      map[string]error
}

func (a *recordingAnnouncer) Announce(_ context.Context, _ int64, title, _ string) error {
	if err := a.fail[title]; err != nil {
		return err
	}
	a.announced = append(a.announced, title)
	return nil
}

// rssServer serves a feed whose items are listed newest first, the way
// real release feeds do.
func rssServer(t *testing.T, titles []string) *httptest.Server {
	t.Helper()
	var items strings.Builder
	for _, title := range titles {
		fmt.Fprintf(&items, `<item><title>%s</title><link>https://example.com/%s</link><guid>guid-%s</guid></item>`,
			title, title, title)
	}
	body := fmt.Sprintf(`<?xml version="1.0"?><rss version="2.0"><channel><title>releases</title>%s</channel></rss>`, items.String())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func testLoop(cursor Cursor, announcer Announcer) *Loop {
	return NewLoop(nil, cursor, announcer, time.Hour, time.Millisecond, time.Minute, nil)
}

func TestPollAnnouncesOldestFirst(t *testing.T) {
	server := rssServer(t, []string{"third", "second", "first"})
	announcer := &recordingAnnouncer{}
	l := testLoop(newMemCursor(), announcer)

	err := l.poll(context.Background(), Feed{Name: "test", URL: server.URL, Channel: -100})
	if err != nil {
		t.Fatalf("poll() error = %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(announcer.announced) != len(want) {
		t.Fatalf("announced %v, want %v", announcer.announced, want)
	}
	for i := range want {
		if announcer.announced[i] != want[i] {
			t.Errorf("announced[%d] = %q, want %q", i, announcer.announced[i], want[i])
		}
	}
}

func TestPollSkipsSeenItems(t *testing.T) {
	server := rssServer(t, []string{"new", "old"})
	cursor := newMemCursor()
	if err := cursor.MarkSeen(context.Background(), "test", "guid-old"); err != nil {
		t.Fatal(err)
	}
	announcer := &recordingAnnouncer{}
	l := testLoop(cursor, announcer)

	if err := l.poll(context.Background(), Feed{Name: "test", URL: server.URL}); err != nil {
		t.Fatalf("poll() error = %v", err)
	}
	if len(announcer.announced) != 1 || announcer.announced[0] != "new" {
		t.Errorf("announced %v, want only the unseen item", announcer.announced)
	}
}

func TestPollIsIdempotentAcrossCycles(t *testing.T) {
	server := rssServer(t, []string{"b", "a"})
	announcer := &recordingAnnouncer{}
	l := testLoop(newMemCursor(), announcer)
	feed := Feed{Name: "test", URL: server.URL}

	for i := 0; i < 3; i++ {
		if err := l.poll(context.Background(), feed); err != nil {
			t.Fatalf("poll() #%d error = %v", i, err)
		}
	}
	if len(announcer.announced) != 2 {
		t.Errorf("announced %v across three cycles, want each item exactly once", announcer.announced)
	}
}

func TestPollRetriesFailedAnnouncement(t *testing.T) {
	server := rssServer(t, []string{"b", "a"})
	announcer := &recordingAnnouncer{fail: map[string]error{"a": errors.New("channel unreachable")}}
	l := testLoop(newMemCursor(), announcer)
	feed := Feed{Name: "test", URL: server.URL}

	if err := l.poll(context.Background(), feed); err != nil {
		t.Fatalf("poll() error = %v", err)
	}
	if len(announcer.announced) != 1 || announcer.announced[0] != "b" {
		t.Fatalf("announced %v, want only the deliverable item", announcer.announced)
	}

	// The channel comes back; the failed item goes out on the next cycle,
	// the delivered one does not repeat.
	announcer.fail = nil
	if err := l.poll(context.Background(), feed); err != nil {
		t.Fatalf("poll() retry error = %v", err)
	}
	if len(announcer.announced) != 2 || announcer.announced[1] != "a" {
		t.Errorf("announced %v after retry, want the failed item delivered once", announcer.announced)
	}
}

func TestPollBadFeedURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	l := testLoop(newMemCursor(), &recordingAnnouncer{})
	if err := l.poll(context.Background(), Feed{Name: "test", URL: server.URL}); err == nil {
		t.Error("poll() of a dead feed returned no error")
	}
}

func TestItemIDPrefersGUID(t *testing.T) {
	if got := itemID(&gofeed.Item{GUID: "g", Link: "l"}); got != "g" {
		t.Errorf("itemID = %q, want the GUID", got)
	}
	if got := itemID(&gofeed.Item{Link: "l"}); got != "l" {
		t.Errorf("itemID = %q, want the link fallback", got)
	}
}
