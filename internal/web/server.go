// Package web serves the health endpoint and an RSS feed of recently
// indexed files so operators can watch indexing without opening Telegram.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	sloghttp "github.com/samber/slog-http"

	"autofilter-bot/internal/delivery"
	"autofilter-bot/internal/models"
)

const feedLimit = 50

// Media is the slice of the media repository the feed reads.
type Media interface {
	Recent(ctx context.Context, limit int) ([]models.MediaRecord, error)
	Count(ctx context.Context) (int64, error)
}

type Server struct {
	media   Media
	botName string
	port    string
	logger  *slog.Logger
}

func New(media Media, botName, port string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{media: media, botName: botName, port: port, logger: logger}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /feed", s.handleFeed)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	addr := fmt.Sprintf(":%s", s.port)
	s.logger.Info("web server starting", "addr", addr)

	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	recs, err := s.media.Recent(r.Context(), feedLimit)
	if err != nil {
		s.logger.Error("failed to load recent media", "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - recently indexed files", s.botName),
		Link:        &feeds.Link{Href: fmt.Sprintf("https://t.me/%s", s.botName)},
		Description: "Files recently indexed for search.",
		Updated:     time.Now(),
	}
	for _, rec := range recs {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          rec.FileKey,
			Title:       rec.FileName,
			Description: fmt.Sprintf("%s, %s", delivery.HumanSize(rec.FileSize), rec.MimeType),
			Link:        &feeds.Link{Href: fmt.Sprintf("https://t.me/%s?start=file_0_%s", s.botName, rec.FileKey)},
			Created:     rec.CreatedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.logger.Error("failed to render rss", "error", err)
		http.Error(w, "Failed to generate RSS", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	count, err := s.media.Count(r.Context())
	if err != nil {
		s.logger.Error("failed to count media", "error", err)
	}
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
    <h1>%s</h1>
    <p>Media search bot. Indexed files: %d.</p>
    <p><a href="/feed">Recent files (RSS)</a> | <a href="/health">Health</a></p>
</body>
</html>`, s.botName, s.botName, count)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}
