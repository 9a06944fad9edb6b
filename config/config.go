// Package config assembles the process settings from the environment, an
// optional .env file and an optional config file named by CONFIG_FILE.
package config

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/princinho/storefront/utils"
	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	ImagesGCS  = "gcs"
	ImagesR2   = "r2"
	ImagesNone = "none"
)

type Config struct {
	Port        string
	StoreDriver string

	MongoURI     string
	DatabaseName string

	JWTSecret        string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	CookieSecure     bool
	CookieDomain     string

	AllowedOrigins []string
	AdminEmail     string
	AdminPassword  string

	ImageStore       string
	GCSBucket        string
	CredentialsFile  string
	R2               utils.R2Config
	MaxProductImages int

	MaxUploadSizeMB       int
	AllowedFileExtensions []string
	AllowedFileMimeTypes  []string

	QueryLimits utils.QueryLimits

	RedisURL           string
	RateLimitPerMinute int

	OIDCIssuer   string
	OIDCClientID string
}

var defaults = map[string]any{
	"PORT":                      "8080",
	"STORE_DRIVER":              StoreMongo,
	"MONGODB_URI":               "",
	"DATABASE_NAME":             "",
	"JWT_SECRET":                "",
	"JWT_REFRESH_SECRET":        "",
	"ACCESS_TOKEN_TTL_MINUTES":  15,
	"REFRESH_TOKEN_TTL_DAYS":    30,
	"COOKIE_SECURE":             true,
	"COOKIE_DOMAIN":             "",
	"ALLOWED_ORIGINS":           "",
	"ADMIN_EMAIL":               "",
	"ADMIN_PASSWORD":            "",
	"IMAGE_STORE":               ImagesNone,
	"GCS_BUCKET":                "",
	"CREDENTIALS_FILE_LOCATION": "",
	"R2_BUCKET":                 "",
	"R2_ACCESS_KEY_ID":          "",
	"R2_SECRET_ACCESS_KEY":      "",
	"R2_ENDPOINT":               "",
	"R2_PUBLIC_DOMAIN":          "",
	"MAX_PROD_IMAGES":           4,
	"MAX_UPLOAD_SIZE_MB":        5,
	"ALLOWED_FILE_EXTENSIONS":   ".jpg,.jpeg,.png,.webp",
	"ALLOWED_FILE_MIME_TYPES":   "image/jpeg,image/png,image/webp",
	"DEFAULT_READ_QUERY_LIMIT":  20,
	"READ_QUERY_MAX_LIMIT":      100,
	"REDIS_URL":                 "",
	"RATE_LIMIT_PER_MINUTE":     120,
	"OIDC_ISSUER":               "",
	"OIDC_CLIENT_ID":            "",
}

func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(configFile), "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Port:        v.GetString("PORT"),
		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),

		MongoURI:     v.GetString("MONGODB_URI"),
		DatabaseName: v.GetString("DATABASE_NAME"),

		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTRefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
		AccessTTL:        time.Duration(v.GetInt("ACCESS_TOKEN_TTL_MINUTES")) * time.Minute,
		RefreshTTL:       time.Duration(v.GetInt("REFRESH_TOKEN_TTL_DAYS")) * 24 * time.Hour,
		CookieSecure:     v.GetBool("COOKIE_SECURE"),
		CookieDomain:     v.GetString("COOKIE_DOMAIN"),

		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		AdminEmail:     v.GetString("ADMIN_EMAIL"),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),

		ImageStore:      strings.ToLower(v.GetString("IMAGE_STORE")),
		GCSBucket:       v.GetString("GCS_BUCKET"),
		CredentialsFile: v.GetString("CREDENTIALS_FILE_LOCATION"),
		R2: utils.R2Config{
			Bucket:          v.GetString("R2_BUCKET"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("R2_SECRET_ACCESS_KEY"),
			Endpoint:        v.GetString("R2_ENDPOINT"),
			PublicDomain:    v.GetString("R2_PUBLIC_DOMAIN"),
		},
		MaxProductImages: v.GetInt("MAX_PROD_IMAGES"),

		MaxUploadSizeMB:       v.GetInt("MAX_UPLOAD_SIZE_MB"),
		AllowedFileExtensions: splitList(v.GetString("ALLOWED_FILE_EXTENSIONS")),
		AllowedFileMimeTypes:  splitList(v.GetString("ALLOWED_FILE_MIME_TYPES")),

		QueryLimits: utils.QueryLimits{
			Default: v.GetInt("DEFAULT_READ_QUERY_LIMIT"),
			Max:     v.GetInt("READ_QUERY_MAX_LIMIT"),
		},

		RedisURL:           v.GetString("REDIS_URL"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),

		OIDCIssuer:   v.GetString("OIDC_ISSUER"),
		OIDCClientID: v.GetString("OIDC_CLIENT_ID"),
	}
}

// Load reads .env (when present), the environment and CONFIG_FILE, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file loaded")
	}

	v, err := newViper("")
	if err != nil {
		return nil, err
	}
	if file := v.GetString("CONFIG_FILE"); file != "" {
		if v, err = newViper(file); err != nil {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET are required"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}

	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" || c.DatabaseName == "" {
			errs = append(errs, errors.New("MONGODB_URI and DATABASE_NAME are required for the mongo store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver))
	}

	switch c.ImageStore {
	case ImagesGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for IMAGE_STORE=gcs"))
		}
	case ImagesR2:
		if c.R2.Bucket == "" || c.R2.AccessKeyID == "" || c.R2.SecretAccessKey == "" || c.R2.Endpoint == "" {
			errs = append(errs, errors.New("R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_ENDPOINT are required for IMAGE_STORE=r2"))
		}
	case ImagesNone:
	default:
		errs = append(errs, fmt.Errorf("IMAGE_STORE must be gcs, r2 or none, got %q", c.ImageStore))
	}

	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	if c.OIDCIssuer != "" && c.OIDCClientID == "" {
		errs = append(errs, errors.New("OIDC_CLIENT_ID is required when OIDC_ISSUER is set"))
	}
	if c.QueryLimits.Default <= 0 || c.QueryLimits.Max < c.QueryLimits.Default {
		errs = append(errs, errors.New("DEFAULT_READ_QUERY_LIMIT must be positive and not above READ_QUERY_MAX_LIMIT"))
	}
	return errors.Join(errs...)
}

// Watch reloads configFile on change and hands every valid result to onChange.
// Invalid edits are logged and ignored.
func Watch(configFile string, onChange func(*Config)) error {
	v, err := newViper(configFile)
	if err != nil {
		return err
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("[config] %s changed (%s)", e.Name, e.Op)
		next := fromViper(v)
		if err := next.Validate(); err != nil {
			log.Println("[config] ignoring invalid reload:", err)
			return
		}
		onChange(next)
	})
	v.WatchConfig()
	return nil
}
