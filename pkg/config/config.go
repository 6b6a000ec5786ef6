package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DefaultEnvFile is read by Load when present.
	DefaultEnvFile = ".env"

	LogFormatJSON    = "json"
	LogFormatConsole = "console"

	// PreviewDominantLight and PreviewDominantDark ask the preview renderer to derive the
	// colour from the cover's dominant colour instead of a fixed value.
	PreviewDominantLight = "use_dominant_color_light"
	PreviewDominantDark  = "use_dominant_color_dark"

	debugSecretKey = "insecure-debug-key-do-not-use-in-production"
)

// Config is the deployment configuration. It is built once at startup and shared
// read-only; changing any value requires a process restart.
type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Security  SecurityConfig
	I18n      I18nConfig
	Log       LogConfig
	Admin     AdminConfig
	Database  DatabaseConfig
	Activity  RedisConfig
	Broker    RedisConfig
	Storage   StorageConfig
	Email     EmailConfig
	Timeouts  TimeoutConfig
	Preview   PreviewConfig
	Telemetry TelemetryConfig

	// MaxStreamLength bounds activity streams kept in the activity cache.
	MaxStreamLength int
}

type SecurityConfig struct {
	SecretKey    string
	Debug        bool
	UseHTTPS     bool
	Domain       string
	AllowedHosts []string
	// TrustProxyHeaders enables X-Forwarded-Proto handling. Leave off unless a proxy
	// terminates TLS in front of the service; otherwise clients can spoof the scheme.
	TrustProxyHeaders bool
}

type I18nConfig struct {
	LanguageCode    string
	DefaultLanguage string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdminConfig throttles administrative form submissions.
type AdminConfig struct {
	RateLimit float64
	RateBurst int
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (r RedisConfig) sameEndpoint(other RedisConfig) bool {
	return strings.EqualFold(r.Host, other.Host) && r.Port == other.Port && r.DB == other.DB
}

// StorageConfig selects between local media storage and S3-compatible object storage.
type StorageConfig struct {
	UseS3           bool
	MediaRoot       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	CustomDomain    string
	EndpointURL     string
}

type EmailConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	UseTLS       bool
	UseSSL       bool
	SenderName   string
	SenderDomain string
}

// Sender returns the From address used for outgoing mail.
func (e EmailConfig) Sender() string {
	return fmt.Sprintf("%s@%s", e.SenderName, e.SenderDomain)
}

// TimeoutConfig bounds waits on slow external calls.
type TimeoutConfig struct {
	Search time.Duration
	Query  time.Duration
}

type PreviewConfig struct {
	Enabled           bool
	BackgroundColor   string
	TextColor         string
	Width             int
	Height            int
	DefaultCoverColor string
}

// TelemetryConfig is optional; an empty endpoint disables export.
type TelemetryConfig struct {
	Endpoint    string
	Headers     map[string]string
	ServiceName string
}

// Enabled reports whether an OTLP endpoint is configured.
func (t TelemetryConfig) Enabled() bool {
	return t.Endpoint != ""
}

// Load reads DefaultEnvFile (if present) and the process environment.
func Load() (*Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile reads the given env file (if present) and the process environment. Environment
// variables take precedence over the file, which takes precedence over defaults.
func LoadFile(path string) (*Config, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{Key: path, Reason: fmt.Sprintf("read env file: %v", err)}
		}
		values = map[string]string{}
	}

	v := newViper(values)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return build(v)
}

// Parse builds a configuration from the provided key/value pairs only; the process
// environment is ignored.
func Parse(values map[string]string) (*Config, error) {
	return build(newViper(values))
}

func newViper(values map[string]string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	settings := make(map[string]interface{}, len(values))
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		settings[strings.ToUpper(key)] = value
	}
	// MergeConfigMap only fails on nil maps.
	_ = v.MergeConfigMap(settings)
	return v
}

func build(v *viper.Viper) (*Config, error) {
	r := &reader{v: v}
	cfg := &Config{APIPrefix: "/api/v1"}

	debug := r.boolean("DEBUG")
	cfg.Env = EnvProduction
	if debug {
		cfg.Env = EnvDevelopment
	}
	cfg.Port = r.port("PORT")

	cfg.Security = SecurityConfig{
		SecretKey:         r.str("SECRET_KEY"),
		Debug:             debug,
		UseHTTPS:          r.boolean("USE_HTTPS"),
		Domain:            r.required("DOMAIN"),
		AllowedHosts:      splitAndTrim(r.str("ALLOWED_HOSTS")),
		TrustProxyHeaders: r.boolean("TRUST_PROXY_HEADERS"),
	}
	if cfg.Security.SecretKey == "" {
		if debug {
			cfg.Security.SecretKey = debugSecretKey
		} else {
			r.fail("SECRET_KEY", "is required when DEBUG is false")
		}
	}

	cfg.I18n = I18nConfig{
		LanguageCode:    r.str("LANGUAGE_CODE"),
		DefaultLanguage: r.str("DEFAULT_LANGUAGE"),
	}

	cfg.Log = LogConfig{
		Level:  strings.ToLower(r.str("LOG_LEVEL")),
		Format: strings.ToLower(r.str("LOG_FORMAT")),
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		r.fail("LOG_LEVEL", fmt.Sprintf("unknown level %q", cfg.Log.Level))
	}
	if cfg.Log.Format != LogFormatJSON && cfg.Log.Format != LogFormatConsole {
		r.fail("LOG_FORMAT", fmt.Sprintf("must be %s or %s", LogFormatJSON, LogFormatConsole))
	}

	cfg.Admin = AdminConfig{
		RateLimit: r.positiveFloat("ADMIN_RATE_LIMIT"),
		RateBurst: r.positiveInt("ADMIN_RATE_BURST"),
	}

	cfg.Database = DatabaseConfig{
		Host:         r.str("POSTGRES_HOST"),
		Port:         r.port("PGPORT"),
		User:         r.str("POSTGRES_USER"),
		Password:     r.required("POSTGRES_PASSWORD"),
		Name:         r.str("POSTGRES_DB"),
		SSLMode:      r.str("POSTGRES_SSL_MODE"),
		MaxOpenConns: r.positiveInt("POSTGRES_MAX_OPEN_CONNS"),
		MaxIdleConns: r.positiveInt("POSTGRES_MAX_IDLE_CONNS"),
	}

	cfg.Activity = r.redis("REDIS_ACTIVITY")
	cfg.Broker = r.redis("REDIS_BROKER")
	cfg.MaxStreamLength = r.positiveInt("MAX_STREAM_LENGTH")
	if cfg.Activity.sameEndpoint(cfg.Broker) {
		r.fail("REDIS_BROKER_DB_INDEX", "activity cache and task broker must be distinct endpoints (host, port or db index)")
	}

	cfg.Storage = StorageConfig{
		UseS3:           r.boolean("USE_S3"),
		MediaRoot:       r.str("MEDIA_ROOT"),
		AccessKeyID:     r.str("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: r.str("AWS_SECRET_ACCESS_KEY"),
		BucketName:      r.str("AWS_STORAGE_BUCKET_NAME"),
		Region:          r.str("AWS_S3_REGION_NAME"),
		CustomDomain:    r.str("AWS_S3_CUSTOM_DOMAIN"),
		EndpointURL:     r.str("AWS_S3_ENDPOINT_URL"),
	}
	if cfg.Storage.UseS3 {
		r.requireGroup("USE_S3", map[string]string{
			"AWS_STORAGE_BUCKET_NAME": cfg.Storage.BucketName,
			"AWS_S3_REGION_NAME":      cfg.Storage.Region,
			"AWS_S3_CUSTOM_DOMAIN":    cfg.Storage.CustomDomain,
			"AWS_S3_ENDPOINT_URL":     cfg.Storage.EndpointURL,
		})
	}

	cfg.Email = EmailConfig{
		Host:         r.str("EMAIL_HOST"),
		Port:         r.port("EMAIL_PORT"),
		User:         r.str("EMAIL_HOST_USER"),
		Password:     r.str("EMAIL_HOST_PASSWORD"),
		UseTLS:       r.boolean("EMAIL_USE_TLS"),
		UseSSL:       r.boolean("EMAIL_USE_SSL"),
		SenderName:   r.str("EMAIL_SENDER_NAME"),
		SenderDomain: r.str("EMAIL_SENDER_DOMAIN"),
	}
	if cfg.Email.SenderDomain == "" {
		cfg.Email.SenderDomain = cfg.Security.Domain
	}
	if cfg.Email.UseTLS && cfg.Email.UseSSL {
		r.fail("EMAIL_USE_SSL", "EMAIL_USE_TLS and EMAIL_USE_SSL are mutually exclusive")
	}

	cfg.Timeouts = TimeoutConfig{
		Search: r.seconds("SEARCH_TIMEOUT"),
		Query:  r.seconds("QUERY_TIMEOUT"),
	}

	cfg.Preview = PreviewConfig{
		Enabled:           r.boolean("ENABLE_PREVIEW_IMAGES"),
		BackgroundColor:   r.str("PREVIEW_BG_COLOR"),
		TextColor:         r.str("PREVIEW_TEXT_COLOR"),
		Width:             r.positiveInt("PREVIEW_IMG_WIDTH"),
		Height:            r.positiveInt("PREVIEW_IMG_HEIGHT"),
		DefaultCoverColor: r.str("PREVIEW_DEFAULT_COVER_COLOR"),
	}
	if cfg.Preview.Enabled {
		r.previewColor("PREVIEW_BG_COLOR", cfg.Preview.BackgroundColor, true)
		r.previewColor("PREVIEW_TEXT_COLOR", cfg.Preview.TextColor, true)
		r.previewColor("PREVIEW_DEFAULT_COVER_COLOR", cfg.Preview.DefaultCoverColor, false)
	}

	cfg.Telemetry = TelemetryConfig{
		Endpoint:    r.str("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Headers:     r.headers("OTEL_EXPORTER_OTLP_HEADERS"),
		ServiceName: r.str("OTEL_SERVICE_NAME"),
	}

	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DEBUG", false)
	v.SetDefault("PORT", 8000)
	v.SetDefault("USE_HTTPS", true)
	v.SetDefault("ALLOWED_HOSTS", "")
	v.SetDefault("TRUST_PROXY_HEADERS", false)

	v.SetDefault("LANGUAGE_CODE", "en-us")
	v.SetDefault("DEFAULT_LANGUAGE", "English")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMIN_RATE_LIMIT", 5)
	v.SetDefault("ADMIN_RATE_BURST", 10)

	v.SetDefault("POSTGRES_HOST", "db")
	v.SetDefault("PGPORT", 5432)
	v.SetDefault("POSTGRES_USER", "bookwyrm")
	v.SetDefault("POSTGRES_DB", "bookwyrm")
	v.SetDefault("POSTGRES_SSL_MODE", "disable")
	v.SetDefault("POSTGRES_MAX_OPEN_CONNS", 10)
	v.SetDefault("POSTGRES_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ACTIVITY_HOST", "redis_activity")
	v.SetDefault("REDIS_ACTIVITY_PORT", 6379)
	v.SetDefault("REDIS_ACTIVITY_PASSWORD", "")
	v.SetDefault("REDIS_ACTIVITY_DB_INDEX", 0)
	v.SetDefault("MAX_STREAM_LENGTH", 200)

	v.SetDefault("REDIS_BROKER_HOST", "redis_broker")
	v.SetDefault("REDIS_BROKER_PORT", 6379)
	v.SetDefault("REDIS_BROKER_PASSWORD", "")
	v.SetDefault("REDIS_BROKER_DB_INDEX", 0)

	v.SetDefault("USE_S3", false)
	v.SetDefault("MEDIA_ROOT", "./images")

	v.SetDefault("EMAIL_HOST", "smtp.mailgun.org")
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("EMAIL_USE_TLS", true)
	v.SetDefault("EMAIL_USE_SSL", false)
	v.SetDefault("EMAIL_SENDER_NAME", "admin")

	v.SetDefault("SEARCH_TIMEOUT", 5)
	v.SetDefault("QUERY_TIMEOUT", 5)

	v.SetDefault("ENABLE_PREVIEW_IMAGES", false)
	v.SetDefault("PREVIEW_BG_COLOR", PreviewDominantLight)
	v.SetDefault("PREVIEW_TEXT_COLOR", "#363636")
	v.SetDefault("PREVIEW_IMG_WIDTH", 1200)
	v.SetDefault("PREVIEW_IMG_HEIGHT", 630)
	v.SetDefault("PREVIEW_DEFAULT_COVER_COLOR", "#002549")

	v.SetDefault("OTEL_SERVICE_NAME", "bookwyrm-admin")
}

// reader coerces viper values strictly and collects every failure.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) fail(key, reason string) {
	r.err = multierr.Append(r.err, &ConfigurationError{Key: key, Reason: reason})
}

func (r *reader) str(key string) string {
	return strings.TrimSpace(cast.ToString(r.v.Get(key)))
}

func (r *reader) required(key string) string {
	value := r.str(key)
	if value == "" {
		r.fail(key, "is required")
	}
	return value
}

func (r *reader) requireGroup(gate string, values map[string]string) {
	for _, key := range sortedKeys(values) {
		if values[key] == "" {
			r.fail(key, fmt.Sprintf("is required when %s is true", gate))
		}
	}
}

func (r *reader) boolean(key string) bool {
	raw := r.v.Get(key)
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
	}
	value, err := cast.ToBoolE(raw)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid boolean %q", cast.ToString(raw)))
		return false
	}
	return value
}

// integer reads strings as base 10 only; cast would accept 0x and leading-zero octal.
func (r *reader) integer(key string) (int, bool) {
	raw := r.v.Get(key)
	if s, ok := raw.(string); ok {
		value, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			r.fail(key, fmt.Sprintf("invalid integer %q", s))
			return 0, false
		}
		return value, true
	}
	value, err := cast.ToIntE(raw)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid integer %q", cast.ToString(raw)))
		return 0, false
	}
	return value, true
}

func (r *reader) port(key string) int {
	value, ok := r.integer(key)
	if ok && (value < 1 || value > 65535) {
		r.fail(key, fmt.Sprintf("port %d out of range", value))
	}
	return value
}

func (r *reader) positiveInt(key string) int {
	value, ok := r.integer(key)
	if ok && value <= 0 {
		r.fail(key, "must be greater than zero")
	}
	return value
}

func (r *reader) positiveFloat(key string) float64 {
	raw := r.v.Get(key)
	value, err := cast.ToFloat64E(raw)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid number %q", cast.ToString(raw)))
		return 0
	}
	if value <= 0 {
		r.fail(key, "must be greater than zero")
	}
	return value
}

func (r *reader) seconds(key string) time.Duration {
	return time.Duration(r.positiveInt(key)) * time.Second
}

func (r *reader) redis(prefix string) RedisConfig {
	cfg := RedisConfig{
		Host:     r.str(prefix + "_HOST"),
		Port:     r.port(prefix + "_PORT"),
		Password: r.str(prefix + "_PASSWORD"),
	}
	if cfg.Host == "" {
		r.fail(prefix+"_HOST", "is required")
	}
	db, ok := r.integer(prefix + "_DB_INDEX")
	if ok && (db < 0 || db > 15) {
		r.fail(prefix+"_DB_INDEX", fmt.Sprintf("db index %d out of range 0-15", db))
	}
	cfg.DB = db
	return cfg
}

func (r *reader) previewColor(key, value string, allowDominant bool) {
	if allowDominant && (value == PreviewDominantLight || value == PreviewDominantDark) {
		return
	}
	if !isHexColor(value) {
		r.fail(key, fmt.Sprintf("invalid colour %q", value))
	}
}

func (r *reader) headers(key string) map[string]string {
	raw := r.str(key)
	if raw == "" {
		return nil
	}
	headers := make(map[string]string)
	for _, pair := range splitAndTrim(raw) {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			r.fail(key, fmt.Sprintf("malformed header %q, expected name=value", pair))
			continue
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func isHexColor(value string) bool {
	hex := strings.TrimPrefix(value, "#")
	if hex == value || (len(hex) != 3 && len(hex) != 6) {
		return false
	}
	for _, ch := range hex {
		switch {
		case ch >= '0' && ch <= '9', ch >= 'a' && ch <= 'f', ch >= 'A' && ch <= 'F':
		default:
			return false
		}
	}
	return true
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
