package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken string

	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	Admins     []int64
	LogChannel int64

	SupportLink    string
	UpdatesLink    string
	Tutorial       string
	VerifyTutorial string

	IsVerify     bool
	VerifyExpire time.Duration

	ShortlinkURL string
	ShortlinkAPI string

	AutoFilter  bool
	IMDB        bool
	SpellCheck  bool
	AutoDelete  bool
	Welcome     bool
	WelcomeText string
	LinkMode    bool
	IsStream    bool
	Shortlink   bool

	FileCaption      string
	DeleteTime       time.Duration
	PMFileDeleteTime time.Duration
	BatchKeyTTL      time.Duration

	FeedMVURL        string
	FeedBlastURL     string
	FeedMVChannel    int64
	FeedBlastChannel int64
	ScrapeInterval   time.Duration
	ScrapeRetry      time.Duration
	ScrapePause      time.Duration

	HTTPPort string
}

const defaultCaption = "{file_name}\n\nSize: {file_size}\n\n{file_caption}"

const defaultWelcome = "Hey {mention}, welcome to {title}!"

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		BotToken: getEnv("BOT_TOKEN", ""),

		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "autofilter_bot"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		Admins:     getEnvIDs("ADMINS"),
		LogChannel: getEnvInt64("LOG_CHANNEL", 0),

		SupportLink:    getEnv("SUPPORT_LINK", "https://t.me/autofilter_support"),
		UpdatesLink:    getEnv("UPDATES_LINK", "https://t.me/autofilter_updates"),
		Tutorial:       getEnv("TUTORIAL", "https://t.me/autofilter_updates"),
		VerifyTutorial: getEnv("VERIFY_TUTORIAL", "https://t.me/autofilter_updates"),

		IsVerify:     getEnvBool("IS_VERIFY", true),
		VerifyExpire: getEnvSeconds("VERIFY_EXPIRE", 86400),

		ShortlinkURL: getEnv("SHORTLINK_URL", "publicearn.com"),
		ShortlinkAPI: getEnv("SHORTLINK_API", ""),

		AutoFilter:  getEnvBool("AUTO_FILTER", true),
		IMDB:        getEnvBool("IMDB", true),
		SpellCheck:  getEnvBool("SPELL_CHECK", true),
		AutoDelete:  getEnvBool("AUTO_DELETE", true),
		Welcome:     getEnvBool("WELCOME", false),
		WelcomeText: getEnv("WELCOME_TEXT", defaultWelcome),
		LinkMode:    getEnvBool("LINK_MODE", true),
		IsStream:    getEnvBool("IS_STREAM", true),
		Shortlink:   getEnvBool("SHORTLINK", false),

		FileCaption:      getEnv("FILE_CAPTION", defaultCaption),
		DeleteTime:       getEnvSeconds("DELETE_TIME", 3600),
		PMFileDeleteTime: getEnvSeconds("PM_FILE_DELETE_TIME", 3600),
		BatchKeyTTL:      getEnvSeconds("BATCH_KEY_TTL", 86400),

		FeedMVURL:        getEnv("TMV", "https://www.1tamilmv.uno/index.php?/rss/forums"),
		FeedBlastURL:     getEnv("TB", "https://www.1tamilblasters.party/index.php?/rss/forums"),
		FeedMVChannel:    getEnvInt64("TMV_LOG", 0),
		FeedBlastChannel: getEnvInt64("TB_LOG", 0),
		ScrapeInterval:   getEnvSeconds("SCRAPE_INTERVAL", 1800),
		ScrapeRetry:      getEnvSeconds("SCRAPE_RETRY", 300),
		ScrapePause:      getEnvSeconds("SCRAPE_PAUSE", 10),

		HTTPPort: getEnv("PORT", "8080"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvBool accepts the truthy/falsy spellings operators already use in
// deployment configs (true/yes/1/enable/y and their negatives).
func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1", "enable", "y":
		return true
	case "false", "no", "0", "disable", "n":
		return false
	default:
		log.Printf("Invalid value for %s: %q, using default", key, value)
		return fallback
	}
}

func getEnvInt64(key string, fallback int64) int64 {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default", key, value)
		return fallback
	}
	return n
}

func getEnvSeconds(key string, fallback int64) time.Duration {
	return time.Duration(getEnvInt64(key, fallback)) * time.Second
}

// getEnvIDs parses a space-separated list of chat/user ids.
func getEnvIDs(key string) []int64 {
	value := getEnv(key, "")
	if value == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Fields(value) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Invalid id in %s: %q, skipping", key, part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
