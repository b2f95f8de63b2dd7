package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type OAuthCfg struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

type CacheCfg struct {
	Enabled   bool
	RedisAddr string
	TTL       time.Duration
	OpTimeout time.Duration
}

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

type MetricsCfg struct {
	Enabled bool
	Addr    string
	Path    string
}

type Config struct {
	Addr            string
	LogLevel        string
	LogConsole      bool
	LogSampleN      int
	GeoServerURL    string
	HTTPTimeout     time.Duration
	Backend         string
	HostedEnvMarker string
	OutputPath      string
	AssetsDir       string
	LeafletCDN      string
	CredentialsPath string
	PlanPath        string
	OAuth           OAuthCfg
	Cache           CacheCfg
	Events          EventsCfg
	Metrics         MetricsCfg
}

func FromEnv() Config {
	return Config{
		Addr:            getenv("ADDR", ":8090"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogConsole:      getbool("LOG_CONSOLE", false),
		LogSampleN:      getint("LOG_SAMPLE_N", 0),
		GeoServerURL:    getenv("GEOSERVER_URL", "http://localhost:8080/geoserver"),
		HTTPTimeout:     getduration("HTTP_TIMEOUT", 60*time.Second),
		Backend:         strings.ToLower(getenv("MAP_BACKEND", "")),
		HostedEnvMarker: getenv("HOSTED_ENV_MARKER", "COLAB_RELEASE_TAG"),
		OutputPath:      getenv("OUTPUT_PATH", "wbd_map.html"),
		AssetsDir:       getenv("ASSETS_DIR", defaultDir(os.UserCacheDir, "leaflet")),
		LeafletCDN:      getenv("LEAFLET_CDN", "https://unpkg.com/leaflet@1.9.4/dist"),
		CredentialsPath: getenv("CREDENTIALS_PATH", defaultDir(os.UserConfigDir, "credentials.json")),
		PlanPath:        getenv("PLAN_PATH", ""),
		OAuth: OAuthCfg{
			ClientID:     getenv("OAUTH_CLIENT_ID", ""),
			ClientSecret: getenv("OAUTH_CLIENT_SECRET", ""),
			AuthURL:      getenv("OAUTH_AUTH_URL", "https://accounts.google.com/o/oauth2/auth"),
			TokenURL:     getenv("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			RedirectURL:  getenv("OAUTH_REDIRECT_URL", "urn:ietf:wg:oauth:2.0:oob"),
			Scopes:       getlist("OAUTH_SCOPES", []string{"openid"}),
		},
		Cache: CacheCfg{
			Enabled:   getbool("CACHE_ENABLED", false),
			RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
			TTL:       getduration("CACHE_TTL", 24*time.Hour),
			OpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: getlist("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getenv("KAFKA_TOPIC", "wbd-map-events"),
			Queue:   getint("EVENTS_QUEUE", 256),
		},
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
			Path:    getenv("METRICS_PATH", "/metrics"),
		},
	}
}

// resolves <base>/wbdmap/<name>, falling back to the working directory
func defaultDir(base func() (string, error), name string) string {
	dir, err := base()
	if err != nil || dir == "" {
		return filepath.Join(".wbdmap", name)
	}
	return filepath.Join(dir, "wbdmap", name)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "a,b , c" into a trimmed list
func getlist(k string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	var out []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
