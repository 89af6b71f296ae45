package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"

	"autofilter-bot/internal/models"
	"autofilter-bot/internal/store"
)

type sentMedia struct {
	chatID  int64
	fileRef string
	caption string
	protect bool
	markup  *telego.InlineKeyboardMarkup
}

type fakeTransport struct {
	mu sync.Mutex

	media     []sentMedia
	texts     []string
	markups   []*telego.InlineKeyboardMarkup
	deleted   []int
	nextMsgID int

	failMedia  map[string]error
	failDelete map[int]error
}

func (f *fakeTransport) SendMedia(_ context.Context, chatID int64, fileRef, caption string, protect bool, markup *telego.InlineKeyboardMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failMedia[fileRef]; err != nil {
		return 0, err
	}
	f.media = append(f.media, sentMedia{chatID, fileRef, caption, protect, markup})
	f.nextMsgID++
	return f.nextMsgID, nil
}

func (f *fakeTransport) SendText(_ context.Context, _ int64, text string, markup *telego.InlineKeyboardMarkup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.markups = append(f.markups, markup)
	f.nextMsgID++
	return f.nextMsgID, nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failDelete[messageID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

type fakeBatches struct {
	keys map[string][]string
}

func (f *fakeBatches) Get(_ context.Context, key string) ([]string, error) {
	fileKeys, ok := f.keys[key]
	if !ok {
		return nil, store.ErrNoSuchBatch
	}
	return fileKeys, nil
}

type fakeMedia struct {
	recs map[string]models.MediaRecord
}

func (f *fakeMedia) GetMany(_ context.Context, fileKeys []string) ([]models.MediaRecord, error) {
	var out []models.MediaRecord
	for _, k := range fileKeys {
		if rec, ok := f.recs[k]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// blockForever keeps the auto-delete goroutine parked so tests can assert
// the delivery side without racing it.
func blockForever(time.Duration) {
	<-make(chan struct{})
}

func newTestScheduler(transport *fakeTransport, batches *fakeBatches, media *fakeMedia) *Scheduler {
	s := NewScheduler(transport, batches, media, time.Hour, "https://t.me/updates", "https://t.me/support", nil)
	s.sleep = blockForever
	return s
}

func testRecord() *models.MediaRecord {
	return &models.MediaRecord{
		FileKey:  "key1",
		FileRef:  "ref1",
		FileName: "Some Movie 2024",
		FileSize: 1536,
		Caption:  "original",
	}
}

func TestDeliverOneProtectsFreeUsers(t *testing.T) {
	transport := &fakeTransport{}
	s := newTestScheduler(transport, &fakeBatches{}, &fakeMedia{})

	settings := &models.GroupSettings{Caption: "{file_name} ({file_size})"}
	err := s.DeliverOne(context.Background(), &models.User{ID: 7}, settings, testRecord(), -100)
	if err != nil {
		t.Fatalf("DeliverOne() error = %v", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.media) != 1 {
		t.Fatalf("sent %d media messages, want 1", len(transport.media))
	}
	got := transport.media[0]
	if !got.protect {
		t.Error("free user delivery is not forward-protected")
	}
	if got.caption != "Some Movie 2024 (1.50 KB)" {
		t.Errorf("caption = %q, want the filled template", got.caption)
	}
	if len(transport.texts) != 1 || !strings.Contains(transport.texts[0], "deleted in 1h 0m") {
		t.Errorf("delete notice = %v, want one with the delete delay", transport.texts)
	}
}

func TestDeliverOnePremiumUnprotected(t *testing.T) {
	transport := &fakeTransport{}
	s := newTestScheduler(transport, &fakeBatches{}, &fakeMedia{})

	expiry := time.Now().Add(time.Hour)
	user := &models.User{ID: 7, PremiumExpiry: &expiry}
	err := s.DeliverOne(context.Background(), user, &models.GroupSettings{}, testRecord(), -100)
	if err != nil {
		t.Fatalf("DeliverOne() error = %v", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.media[0].protect {
		t.Error("premium delivery is forward-protected")
	}
}

func TestDeliverOneStreamKeyboard(t *testing.T) {
	transport := &fakeTransport{}
	s := newTestScheduler(transport, &fakeBatches{}, &fakeMedia{})

	settings := &models.GroupSettings{IsStream: true}
	if err := s.DeliverOne(context.Background(), &models.User{ID: 7}, settings, testRecord(), -100); err != nil {
		t.Fatalf("DeliverOne() error = %v", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	markup := transport.media[0].markup
	if markup == nil || len(markup.InlineKeyboard) != 3 {
		t.Fatalf("keyboard rows = %v, want stream, links and close rows", markup)
	}
	if got := markup.InlineKeyboard[0][0].CallbackData; got != "stream#key1" {
		t.Errorf("stream button data = %q, want stream#key1", got)
	}
}

func TestDeliverBatchUnknownKey(t *testing.T) {
	s := newTestScheduler(&fakeTransport{}, &fakeBatches{keys: map[string][]string{}}, &fakeMedia{})

	err := s.DeliverBatch(context.Background(), &models.User{ID: 7}, &models.GroupSettings{}, -100, "gone")
	if !errors.Is(err, store.ErrNoSuchBatch) {
		t.Errorf("DeliverBatch(unknown key) error = %v, want ErrNoSuchBatch", err)
	}
}

func TestDeliverBatchSurvivesBrokenReference(t *testing.T) {
	transport := &fakeTransport{failMedia: map[string]error{"ref2": errors.New("file gone")}}
	batches := &fakeBatches{keys: map[string][]string{"batch1": {"k1", "k2", "k3"}}}
	media := &fakeMedia{recs: map[string]models.MediaRecord{
		"k1": {FileKey: "k1", FileRef: "ref1", FileName: "a"},
		"k2": {FileKey: "k2", FileRef: "ref2", FileName: "b"},
		"k3": {FileKey: "k3", FileRef: "ref3", FileName: "c"},
	}}
	s := newTestScheduler(transport, batches, media)

	err := s.DeliverBatch(context.Background(), &models.User{ID: 7}, &models.GroupSettings{}, -100, "batch1")
	if err != nil {
		t.Fatalf("DeliverBatch() error = %v", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.media) != 2 {
		t.Errorf("sent %d of the batch, want the 2 deliverable files", len(transport.media))
	}
	if transport.texts[0] != "Total files - 3" {
		t.Errorf("batch header = %q, want the total count", transport.texts[0])
	}
}

func TestAutoDeleteTolerantAndRearms(t *testing.T) {
	transport := &fakeTransport{failDelete: map[int]error{2: errors.New("already deleted")}}
	s := newTestScheduler(transport, &fakeBatches{}, &fakeMedia{})
	s.sleep = func(time.Duration) {}

	again := &telego.InlineKeyboardMarkup{}
	s.autoDelete(7, []int{1, 2, 3, 0}, again)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.deleted) != 2 {
		t.Errorf("deleted %v, want the two deletable handles", transport.deleted)
	}
	if len(transport.texts) != 1 || !strings.Contains(transport.texts[0], "gone") {
		t.Fatalf("texts = %v, want the get-again message", transport.texts)
	}
	if transport.markups[0] != again {
		t.Error("get-again message does not carry the re-fetch keyboard")
	}
}
