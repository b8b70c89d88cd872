package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	LogDir      string

	// review pipeline
	SourceURL   string
	ArchivePath string
	JSONPath    string
	ResultCSV   string
	DBDriver    string // sqlite|mysql
	DBDSN       string
	ChunkSize   int
	Workers     int

	// summary mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailTo       string
	MailSubject  string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	// category scraper
	CategoriesURL string
	CategoriesCSV string
	ParentsCSV    string
	CategoriesRPS int

	// extract merger
	MergeZip string
	MergeDir string
	MergeOut string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		LogDir:      env("LOG_DIR", "logs"),

		SourceURL:   env("SOURCE_URL", "https://jmcauley.ucsd.edu/data/amazon_v2/categoryFilesSmall/Electronics_5.json.gz"),
		ArchivePath: env("ARCHIVE_PATH", "Electronics_5.json.gz"),
		JSONPath:    env("JSON_PATH", "Electronics_5.json"),
		ResultCSV:   env("RESULT_CSV", "final_result.csv"),
		DBDriver:    env("DB_DRIVER", "sqlite"),
		DBDSN:       env("DB_DSN", "amazon_reviews.db"),
		ChunkSize:   atoi("CHUNK_SIZE", 100_000),
		Workers:     atoi("WORKERS", 8),

		SMTPHost:     env("SMTP_HOST", "smtp-relay.brevo.com"),
		SMTPPort:     atoi("SMTP_PORT", 587),
		SMTPUsername: env("SMTP_USERNAME", ""),
		SMTPPassword: env("SMTP_PASSWORD", ""),
		MailFrom:     env("MAIL_FROM", ""),
		MailTo:       env("MAIL_TO", ""),
		MailSubject:  env("MAIL_SUBJECT", "Daily Review Report"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		CategoriesURL: env("CATEGORIES_URL", "https://store-directory-api.afterpay.com/api/v1/categories"),
		CategoriesCSV: env("CATEGORIES_CSV", "cleaned_data.csv"),
		ParentsCSV:    env("PARENTS_CSV", "parent_ids.csv"),
		CategoriesRPS: atoi("CATEGORIES_RPS", 5),

		MergeZip: env("MERGE_ZIP", "Q3.zip"),
		MergeDir: env("MERGE_DIR", "."),
		MergeOut: env("MERGE_OUT", "filtered_result.csv"),
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 100_000
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	return c
}

// WarnMissingMail logs the mail settings a pipeline run cannot do without.
func (c Config) WarnMissingMail() {
	if c.SMTPUsername == "" || c.SMTPPassword == "" {
		log.Warn().Msg("SMTP_USERNAME/SMTP_PASSWORD are empty")
	}
	if c.MailFrom == "" || c.MailTo == "" {
		log.Warn().Msg("MAIL_FROM/MAIL_TO are empty")
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
