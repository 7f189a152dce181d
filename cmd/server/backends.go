package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/anonto42/dank-memes/backend/internal/dedupe"
	"github.com/anonto42/dank-memes/backend/internal/delivery"
	"github.com/anonto42/dank-memes/backend/internal/logger"
	"github.com/anonto42/dank-memes/backend/internal/repositories"
	"github.com/anonto42/dank-memes/backend/internal/storage"
	"github.com/anonto42/dank-memes/backend/pkg/config"
	"github.com/anonto42/dank-memes/backend/pkg/firebase"
	"go.uber.org/zap"
)

// backends is the set of store implementations selected by the configuration.
type backends struct {
	users         repositories.UserRepository
	memes         repositories.MemeRepository
	comments      repositories.CommentRepository
	notifications repositories.NotificationRepository
	counters      repositories.CounterRepository
	deduper       dedupe.Deduper
	sender        delivery.Sender
	buckets       storage.Buckets

	firestore *firestore.Client
}

func (b *backends) close() {
	if b.firestore != nil {
		if err := b.firestore.Close(); err != nil {
			logger.Log.Error("Error closing Firestore client", zap.Error(err))
		}
	}
}

func needsFirebase(cfg *config.Config) bool {
	return cfg.StoreBackend == config.BackendFirestore ||
		cfg.CounterBackend == config.BackendRTDB ||
		cfg.DeliveryBackend == config.BackendFCM ||
		cfg.FirebaseStorageBucket != ""
}

func buildBackends(ctx context.Context, cfg *config.Config, db *config.DB) (*backends, error) {
	b := &backends{}

	var app *firebase.App
	if needsFirebase(cfg) {
		var err error
		app, err = firebase.InitFirebase(ctx, firebase.Settings{
			CredentialsPath: cfg.FirebaseCredentialsPath,
			ProjectID:       cfg.FirebaseProjectID,
			DatabaseURL:     cfg.FirebaseDatabaseURL,
			StorageBucket:   cfg.FirebaseStorageBucket,
		})
		if err != nil {
			return nil, err
		}
	}

	// One MemoryStore serves every memory-backed role so they see the same data.
	var memory *repositories.MemoryStore
	memoryStore := func() *repositories.MemoryStore {
		if memory == nil {
			memory = repositories.NewMemoryStore()
		}
		return memory
	}

	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		b.firestore = client
		b.users = repositories.NewFirestoreUserRepository(client)
		b.memes = repositories.NewFirestoreMemeRepository(client)
		b.comments = repositories.NewFirestoreCommentRepository(client)
		b.notifications = repositories.NewFirestoreNotificationRepository(client)
	case config.BackendMongo:
		store := repositories.NewMongoStore(db.MongoDatabase(cfg))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		b.users, b.memes, b.comments, b.notifications = store, store, store, store
	case config.BackendMemory:
		store := memoryStore()
		b.users, b.memes, b.comments, b.notifications = store, store, store, store
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.CounterBackend {
	case config.BackendRTDB:
		client, err := app.Database(ctx)
		if err != nil {
			return nil, err
		}
		b.counters = repositories.NewRealtimeCounterRepository(client, "metadata")
	case config.BackendRedis:
		b.counters = repositories.NewRedisCounterRepository(db.Redis, "metadata:")
	case config.BackendPostgres:
		repo := repositories.NewPostgresCounterRepository(db.Postgres)
		if err := repo.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrate counters table: %w", err)
		}
		b.counters = repo
	case config.BackendMongo:
		b.counters = repositories.NewMongoCounterRepository(db.MongoDatabase(cfg))
	case config.BackendMemory:
		b.counters = memoryStore()
	default:
		return nil, fmt.Errorf("unknown COUNTER_BACKEND %q", cfg.CounterBackend)
	}

	switch cfg.DedupeBackend {
	case config.BackendRedis:
		b.deduper = dedupe.NewRedisDeduper(db.Redis, cfg.DedupeTTL)
	case config.BackendMemory:
		b.deduper = dedupe.NewMemoryDeduper(cfg.DedupeTTL)
	default:
		return nil, fmt.Errorf("unknown DEDUPE_BACKEND %q", cfg.DedupeBackend)
	}

	switch cfg.DeliveryBackend {
	case config.BackendFCM:
		client, err := app.Messaging(ctx)
		if err != nil {
			return nil, err
		}
		b.sender = delivery.NewFCMSender(client)
	case config.BackendLog:
		b.sender = delivery.LogSender{}
	default:
		return nil, fmt.Errorf("unknown DELIVERY_BACKEND %q", cfg.DeliveryBackend)
	}

	if cfg.FirebaseStorageBucket != "" {
		client, err := app.Storage(ctx)
		if err != nil {
			return nil, err
		}
		b.buckets = storage.NewFirebaseBuckets(client)
	} else {
		logger.Log.Warn("FIREBASE_STORAGE_BUCKET not set, thumbnails are kept in memory")
		b.buckets = storage.NewMemoryBucket("local")
	}

	logger.Log.Info("Backends selected",
		zap.String("store", cfg.StoreBackend),
		zap.String("counters", cfg.CounterBackend),
		zap.String("dedupe", cfg.DedupeBackend),
		zap.String("delivery", cfg.DeliveryBackend),
	)
	return b, nil
}
