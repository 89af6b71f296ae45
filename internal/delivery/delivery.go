// Package delivery sends indexed files to users and arms the delayed
// auto-delete that swaps delivered messages for a "get again" control.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"autofilter-bot/internal/models"
)

// Transport is the slice of the messaging layer deliveries go through.
type Transport interface {
	SendMedia(ctx context.Context, chatID int64, fileRef, caption string, protect bool, markup *telego.InlineKeyboardMarkup) (int, error)
	SendText(ctx context.Context, chatID int64, text string, markup *telego.InlineKeyboardMarkup) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

type Batches interface {
	Get(ctx context.Context, key string) ([]string, error)
}

type Media interface {
	GetMany(ctx context.Context, fileKeys []string) ([]models.MediaRecord, error)
}

type Scheduler struct {
	transport Transport
	batches   Batches
	media     Media
	log       *slog.Logger

	deleteAfter time.Duration
	updatesLink string
	supportLink string

	sleep func(time.Duration)
}

func NewScheduler(transport Transport, batches Batches, media Media, deleteAfter time.Duration, updatesLink, supportLink string, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		transport:   transport,
		batches:     batches,
		media:       media,
		log:         log,
		deleteAfter: deleteAfter,
		updatesLink: updatesLink,
		supportLink: supportLink,
		sleep:       time.Sleep,
	}
}

// DeliverOne sends a single file and arms its auto-delete. payload is the
// deep-link payload that re-fetches this file via the "get again" button.
func (s *Scheduler) DeliverOne(ctx context.Context, user *models.User, settings *models.GroupSettings, rec *models.MediaRecord, groupID int64) error {
	caption := BuildCaption(settings.Caption, rec)
	protect := !user.HasPremiumAccess(time.Now())

	msgID, err := s.transport.SendMedia(ctx, user.ID, rec.FileRef, caption, protect, s.fileKeyboard(settings, rec.FileKey))
	if err != nil {
		return fmt.Errorf("failed to deliver file %s to %d: %w", rec.FileKey, user.ID, err)
	}

	noteID, err := s.transport.SendText(ctx, user.ID,
		fmt.Sprintf("Note: this file will be deleted in %s to avoid copyrights. Save it somewhere else.", readable(s.deleteAfter)), nil)
	if err != nil {
		s.log.Error("failed to send delete notice", "user", user.ID, "error", err)
	}

	again := tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Get File Again").WithCallbackData(fmt.Sprintf("get_del_file#%d#%s", groupID, rec.FileKey)),
	))
	go s.autoDelete(user.ID, []int{msgID, noteID}, again)
	return nil
}

// DeliverBatch sends every file referenced by a batch key. An evicted or
// unknown key is reported as an explicit no-such-batch outcome.
func (s *Scheduler) DeliverBatch(ctx context.Context, user *models.User, settings *models.GroupSettings, groupID int64, batchKey string) error {
	fileKeys, err := s.batches.Get(ctx, batchKey)
	if err != nil {
		return err
	}
	recs, err := s.media.GetMany(ctx, fileKeys)
	if err != nil {
		return err
	}

	protect := !user.HasPremiumAccess(time.Now())
	handles := make([]int, 0, len(recs)+2)

	totalID, err := s.transport.SendText(ctx, user.ID, fmt.Sprintf("Total files - %d", len(recs)), nil)
	if err != nil {
		s.log.Error("failed to send batch header", "user", user.ID, "error", err)
	} else {
		handles = append(handles, totalID)
	}

	for _, rec := range recs {
		msgID, err := s.transport.SendMedia(ctx, user.ID, rec.FileRef, BuildCaption(settings.Caption, &rec), protect, s.fileKeyboard(settings, rec.FileKey))
		if err != nil {
			// One broken reference must not sink the rest of the batch.
			s.log.Error("failed to deliver batch file", "file", rec.FileKey, "user", user.ID, "error", err)
			continue
		}
		handles = append(handles, msgID)
	}

	noteID, err := s.transport.SendText(ctx, user.ID,
		fmt.Sprintf("Note: these files will be deleted in %s to avoid copyrights. Save them somewhere else.", readable(s.deleteAfter)), nil)
	if err != nil {
		s.log.Error("failed to send delete notice", "user", user.ID, "error", err)
	} else {
		handles = append(handles, noteID)
	}

	again := tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Get Files Again").WithCallbackData(fmt.Sprintf("get_del_send_all_files#%d#%s", groupID, batchKey)),
	))
	go s.autoDelete(user.ID, handles, again)
	return nil
}

// autoDelete fires once per delivery. There is no cancellation path; a
// restart is the only way to abort an armed timer.
func (s *Scheduler) autoDelete(chatID int64, handles []int, again *telego.InlineKeyboardMarkup) {
	s.sleep(s.deleteAfter)
	ctx := context.Background()
	for _, id := range handles {
		if id == 0 {
			continue
		}
		if err := s.transport.DeleteMessage(ctx, chatID, id); err != nil {
			// The user may have deleted it first; keep cleaning the rest.
			s.log.Warn("failed to delete delivered message", "chat", chatID, "message", id, "error", err)
		}
	}
	if _, err := s.transport.SendText(ctx, chatID, "The file has been gone! Click the button below to get it again.", again); err != nil {
		s.log.Error("failed to send get-again control", "chat", chatID, "error", err)
	}
}

func (s *Scheduler) fileKeyboard(settings *models.GroupSettings, fileKey string) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, 3)
	if settings.IsStream {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Watch & Download").WithCallbackData("stream#"+fileKey),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Updates").WithURL(s.updatesLink),
		tu.InlineKeyboardButton("Support").WithURL(s.supportLink),
	))
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Close").WithCallbackData("close_data"),
	))
	return tu.InlineKeyboard(rows...)
}

func readable(d time.Duration) string {
	d = d.Round(time.Second)
	if d >= time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
