package config

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/cache"
	"github.com/anonto42/dank-memes/backend/internal/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the connections opened for the selected backends. Fields for
// backends that are not in use stay nil.
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	Redis    *cache.RedisClient
}

// MongoDatabase returns the configured Mongo database, or nil when Mongo is not in use
func (db *DB) MongoDatabase(cfg *Config) *mongo.Database {
	if db.Mongo == nil {
		return nil
	}
	return db.Mongo.Database(cfg.MongoDatabase)
}

// InitDB opens and pings the database connections the configuration selects
func InitDB(cfg *Config) (*DB, error) {
	db := &DB{}

	if cfg.CounterBackend == BackendPostgres {
		if cfg.PostgresConnStr == "" {
			return nil, fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
		}
		pg, err := initPostgres(cfg.PostgresConnStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db.Postgres = pg
	}

	if cfg.StoreBackend == BackendMongo || cfg.CounterBackend == BackendMongo {
		if cfg.MongoURI == "" {
			db.CloseDB()
			return nil, fmt.Errorf("MONGO_URI environment variable not set")
		}
		client, err := initMongo(cfg.MongoURI)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db.Mongo = client
	}

	if cfg.CounterBackend == BackendRedis || cfg.DedupeBackend == BackendRedis {
		rc, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		db.Redis = rc
	}

	return db, nil
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}

	logger.Log.Info("Successfully connected to PostgreSQL")
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Log.Info("Successfully connected to MongoDB")
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			logger.Log.Error("Error getting SQL DB from GORM", zap.Error(err))
		} else if err := sqlDB.Close(); err != nil {
			logger.Log.Error("Error closing PostgreSQL connection", zap.Error(err))
		} else {
			logger.Log.Info("PostgreSQL connection closed")
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			logger.Log.Error("Error closing MongoDB connection", zap.Error(err))
		} else {
			logger.Log.Info("MongoDB connection closed")
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			logger.Log.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}
