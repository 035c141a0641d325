package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Storage       StorageConfig
	DB            DBConfig
	Mongo         MongoConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	WhatsApp      WhatsAppConfig
	Realtime      RealtimeConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.ensureDSN(cfg.Storage.Driver); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KIRANA_APP_ENV" required:"true"`
	Port         string `envconfig:"KIRANA_APP_PORT" default:"5000"`
	LogLevel     string `envconfig:"KIRANA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KIRANA_LOG_WARN_STACK" default:"false"`
	InstanceID   string `envconfig:"KIRANA_INSTANCE_ID"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type StorageConfig struct {
	Driver string `envconfig:"KIRANA_STORAGE_DRIVER" default:"auto"`
}

// Normalized returns the lower-cased driver name with "auto" as the fallback.
func (s StorageConfig) Normalized() string {
	driver := strings.ToLower(strings.TrimSpace(s.Driver))
	if driver == "" {
		return StorageDriverAuto
	}
	return driver
}

func (s StorageConfig) validate() error {
	for _, candidate := range validStorageDrivers {
		if s.Normalized() == candidate {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (expected one of %s)", EnvStorageDriver, s.Driver, strings.Join(validStorageDrivers, ", "))
}

type DBConfig struct {
	DSN    string `envconfig:"KIRANA_DB_DSN"`
	Driver string `envconfig:"KIRANA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KIRANA_DB_HOST"`
	LegacyPort     int    `envconfig:"KIRANA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KIRANA_DB_USER"`
	LegacyPassword string `envconfig:"KIRANA_DB_PASSWORD"`
	LegacyName     string `envconfig:"KIRANA_DB_NAME"`
	LegacySSLMode  string `envconfig:"KIRANA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KIRANA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KIRANA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KIRANA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KIRANA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Configured reports whether a relational database has been supplied.
func (db DBConfig) Configured() bool {
	return db.DSN != ""
}

type MongoConfig struct {
	URI            string        `envconfig:"KIRANA_MONGO_URI"`
	Database       string        `envconfig:"KIRANA_MONGO_DATABASE" default:"kiranaconnect"`
	ConnectTimeout time.Duration `envconfig:"KIRANA_MONGO_CONNECT_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KIRANA_REDIS_URL"`
	Address      string        `envconfig:"KIRANA_REDIS_ADDR"`
	Password     string        `envconfig:"KIRANA_REDIS_PASSWORD"`
	DB           int           `envconfig:"KIRANA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KIRANA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KIRANA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KIRANA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KIRANA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KIRANA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a Redis endpoint has been supplied.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"KIRANA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KIRANA_JWT_ISSUER" default:"kiranaconnect"`
	ExpirationMinutes int    `envconfig:"KIRANA_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type SessionConfig struct {
	CookieName   string `envconfig:"KIRANA_SESSION_COOKIE_NAME" default:"kc_session"`
	CookieDomain string `envconfig:"KIRANA_SESSION_COOKIE_DOMAIN"`
	Secure       bool   `envconfig:"KIRANA_SESSION_COOKIE_SECURE" default:"false"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KIRANA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KIRANA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KIRANA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KIRANA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KIRANA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"KIRANA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"KIRANA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"KIRANA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"KIRANA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"KIRANA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"KIRANA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"KIRANA_CORS_ALLOWED_ORIGINS" default:"http://localhost:5000,http://localhost:5173"`
}

type WhatsAppConfig struct {
	AccountSID  string        `envconfig:"KIRANA_TWILIO_ACCOUNT_SID"`
	AuthToken   string        `envconfig:"KIRANA_TWILIO_AUTH_TOKEN"`
	FromNumber  string        `envconfig:"KIRANA_TWILIO_PHONE_NUMBER"`
	AlertNumber string        `envconfig:"KIRANA_WHATSAPP_ALERT_NUMBER"`
	BaseURL     string        `envconfig:"KIRANA_TWILIO_BASE_URL" default:"https://api.twilio.com"`
	Timeout     time.Duration `envconfig:"KIRANA_TWILIO_TIMEOUT" default:"10s"`
}

// Enabled reports whether enough credentials exist to send messages.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccountSID != "" && w.AuthToken != "" && w.FromNumber != ""
}

type RealtimeConfig struct {
	Channel      string        `envconfig:"KIRANA_REALTIME_CHANNEL" default:"kc:events"`
	SendBuffer   int           `envconfig:"KIRANA_REALTIME_SEND_BUFFER" default:"32"`
	PingInterval time.Duration `envconfig:"KIRANA_REALTIME_PING_INTERVAL" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KIRANA_AUTO_MIGRATE" default:"false"`
	AutoSeed    bool `envconfig:"KIRANA_AUTO_SEED" default:"false"`
}

func (db *DBConfig) ensureDSN(storageDriver string) error {
	if db.DSN != "" {
		return nil
	}

	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	missing := []string{}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		// Only an explicit postgres selection needs a database up front.
		if strings.EqualFold(strings.TrimSpace(storageDriver), StorageDriverPostgres) {
			return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
		}
		return nil
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
