package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN    string        `env:"DATABASE_URI"`
	AuthSecret     string        `env:"AUTH_SECRET"`
	PublicURL      string        `env:"PUBLIC_URL"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:","`
	AudioMaxSizeMB int           `env:"AUDIO_MAX_MB"`
	ExportTimeout  time.Duration `env:"EXPORT_TIMEOUT"`

	// Object storage
	StorageBackend string `env:"STORAGE_BACKEND"`
	StorageDir     string `env:"STORAGE_DIR"`
	SupabaseURL    string `env:"SUPABASE_URL"`
	SupabaseKey    string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseBucket string `env:"SUPABASE_BUCKET"`

	// Video export
	FFmpegPath  string `env:"FFMPEG_PATH"`
	FFprobePath string `env:"FFPROBE_PATH"`
	VideoFPS    int    `env:"VIDEO_FPS"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL string `env:"-"`
	Version   bool   `env:"-"` // show client version and exit (flag only)
}

const (
	defaultBaseURL        = "localhost:8081"
	defaultAudioMaxSizeMB = 20
	defaultVideoFPS       = 30
	defaultExportTimeout  = 12 * time.Minute
)

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN (postgres URL or sqlite file path)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "secret used to sign session JWTs")
	flag.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "externally visible URL used in share links")
	flag.IntVar(&cfg.AudioMaxSizeMB, "audio-max-mb", cfg.AudioMaxSizeMB, "maximum accepted audio upload size in MB")
	flag.StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, "object storage backend: fs or supabase")
	flag.StringVar(&cfg.StorageDir, "storage-dir", cfg.StorageDir, "root directory of the fs object storage")
	flag.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "path to the ffmpeg binary used for video export")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address of the Whisper server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	cfg.applyDefaults()

	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "whisper.db"
	}
	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = defaultBaseURL
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = cfg.ServerURL
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if cfg.AudioMaxSizeMB <= 0 {
		cfg.AudioMaxSizeMB = defaultAudioMaxSizeMB
	}
	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = defaultExportTimeout
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = "fs"
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = filepath.Join("data", "objects")
	}
	if cfg.SupabaseBucket == "" {
		cfg.SupabaseBucket = "audio"
	}

	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.VideoFPS <= 0 {
		cfg.VideoFPS = defaultVideoFPS
	}
}

// ShareLink returns the public link strangers use to message the given user.
func (cfg *Config) ShareLink(username string) string {
	return cfg.PublicURL + "/send/" + username
}

// ClientConfigDir returns the per-user directory the CLI keeps its auth state in.
func ClientConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "Whisper"), nil
}
