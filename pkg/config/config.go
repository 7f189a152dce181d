package config

import (
	"os"
	"strconv"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Backend names accepted by the *_BACKEND settings.
const (
	BackendFirestore = "firestore"
	BackendRTDB      = "rtdb"
	BackendMongo     = "mongo"
	BackendPostgres  = "postgres"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
	BackendFCM       = "fcm"
	BackendLog       = "log"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	LogFile  string

	FirebaseCredentialsPath string
	FirebaseProjectID       string
	FirebaseDatabaseURL     string
	FirebaseStorageBucket   string

	StoreBackend    string
	CounterBackend  string
	DedupeBackend   string
	DeliveryBackend string

	MongoURI         string
	MongoDatabase    string
	PostgresConnStr  string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	DedupeTTL        time.Duration
	EventsSigningKey string

	BroadcastThreshold     int64
	BroadcastTopic         string
	AdminTopic             string
	MuteExclusive          bool
	PropagationConcurrency int
	ThumbnailMaxSize       int
	Timezone               string
}

// LoadEnvFile copies the variables of the given .env files (default ".env")
// into the environment without overriding variables already set.
func LoadEnvFile(filenames ...string) error {
	return godotenv.Load(filenames...)
}

// LogSettings returns the log level and file, so the logger can be set up
// before the rest of the configuration is parsed.
func LogSettings() (level, file string) {
	return getEnv("LOG_LEVEL", "info"), getEnv("LOG_FILE", "functions.log")
}

// Load reads the configuration from the environment. Call LoadEnvFile first
// to pick up a .env file.
func Load() *Config {
	logLevel, logFile := LogSettings()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: logLevel,
		LogFile:  logFile,

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseDatabaseURL:     getEnv("FIREBASE_DATABASE_URL", ""),
		FirebaseStorageBucket:   getEnv("FIREBASE_STORAGE_BUCKET", ""),

		StoreBackend:    getEnv("STORE_BACKEND", BackendFirestore),
		CounterBackend:  getEnv("COUNTER_BACKEND", BackendRTDB),
		DedupeBackend:   getEnv("DEDUPE_BACKEND", BackendMemory),
		DeliveryBackend: getEnv("DELIVERY_BACKEND", BackendFCM),

		MongoURI:         getEnv("MONGO_URI", ""),
		MongoDatabase:    getEnv("MONGO_DATABASE", "dankmemes"),
		PostgresConnStr:  getEnv("POSTGRES_CONN_STR", ""),
		RedisHost:        getEnv("REDIS_HOST", "localhost"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		DedupeTTL:        getDuration("DEDUPE_TTL", 72*time.Hour),
		EventsSigningKey: getEnv("EVENTS_SIGNING_SECRET", ""),

		BroadcastThreshold:     int64(getInt("BROADCAST_THRESHOLD", 20)),
		BroadcastTopic:         getEnv("BROADCAST_TOPIC", "memes"),
		AdminTopic:             getEnv("ADMIN_TOPIC", "admin"),
		MuteExclusive:          getBool("PROPAGATION_MUTE_EXCLUSIVE", true),
		PropagationConcurrency: getInt("PROPAGATION_CONCURRENCY", 16),
		ThumbnailMaxSize:       getInt("THUMBNAIL_MAX_SIZE", 512),
		Timezone:               getEnv("TIMEZONE", "UTC"),
	}
}

// Location resolves Timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		logger.Log.Warn("Unknown TIMEZONE, using UTC", zap.String("timezone", c.Timezone), zap.Error(err))
		return time.UTC
	}
	return loc
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Log.Warn("Invalid integer setting, using default", zap.String("key", key), zap.String("value", value))
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logger.Log.Warn("Invalid boolean setting, using default", zap.String("key", key), zap.String("value", value))
		return defaultValue
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Log.Warn("Invalid duration setting, using default", zap.String("key", key), zap.String("value", value))
		return defaultValue
	}
	return d
}
