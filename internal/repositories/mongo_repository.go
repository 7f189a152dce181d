package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements the document repositories on flat MongoDB collections.
// Comments and notifications keep their parent key as a field (memeId,
// notifiedUserId), so cross-partition lookups are plain indexed queries.
type MongoStore struct {
	users         *mongo.Collection
	memes         *mongo.Collection
	comments      *mongo.Collection
	notifications *mongo.Collection
}

var (
	_ UserRepository         = (*MongoStore)(nil)
	_ MemeRepository         = (*MongoStore)(nil)
	_ CommentRepository      = (*MongoStore)(nil)
	_ NotificationRepository = (*MongoStore)(nil)
)

// NewMongoStore creates a new MongoStore
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:         db.Collection(usersCollection),
		memes:         db.Collection(memesCollection),
		comments:      db.Collection(commentsCollection),
		notifications: db.Collection(notificationsCollection),
	}
}

// EnsureIndexes creates the author indexes the propagation queries rely on
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		field string
	}{
		{s.memes, "memePosterID"},
		{s.comments, "memeId"},
		{s.comments, "userId"},
		{s.notifications, "userId"},
		{s.notifications, "notifiedUserId"},
	}
	for _, idx := range indexes {
		_, err := idx.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: idx.field, Value: 1}}})
		if err != nil {
			return fmt.Errorf("create index %s.%s: %w", idx.coll.Name(), idx.field, err)
		}
	}
	return nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, id string) (*T, error) {
	var v T
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s %s: %w", coll.Name(), id, ErrNotFound)
		}
		return nil, err
	}
	return &v, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]T, error) {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []T
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func updateOne(ctx context.Context, coll *mongo.Collection, filter bson.M, update bson.M) error {
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %v: %w", coll.Name(), filter, ErrNotFound)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *MongoStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return findOne[models.User](ctx, s.users, userID)
}

// IncrementPosts increments the posts count of a user
func (s *MongoStore) IncrementPosts(ctx context.Context, userID string) error {
	return updateOne(ctx, s.users, bson.M{"_id": userID}, bson.M{"$inc": bson.M{"posts": 1}})
}

// GetMeme retrieves a meme by ID
func (s *MongoStore) GetMeme(ctx context.Context, memeID string) (*models.Meme, error) {
	return findOne[models.Meme](ctx, s.memes, memeID)
}

// GetMemesByPoster retrieves every meme owned by posterID
func (s *MongoStore) GetMemesByPoster(ctx context.Context, posterID string) ([]models.Meme, error) {
	return findAll[models.Meme](ctx, s.memes, bson.M{"memePosterID": posterID})
}

// SetMuted updates the meme's visibility flag
func (s *MongoStore) SetMuted(ctx context.Context, memeID string, muted bool) error {
	return updateOne(ctx, s.memes, bson.M{"_id": memeID}, bson.M{"$set": bson.M{"muted": muted}})
}

// UpdatePoster rewrites the denormalized poster fields
func (s *MongoStore) UpdatePoster(ctx context.Context, memeID, name, avatar string) error {
	return updateOne(ctx, s.memes, bson.M{"_id": memeID}, bson.M{"$set": bson.M{
		"memePoster":       name,
		"memePosterAvatar": avatar,
	}})
}

// SetThumbnail stores the thumbnail URL on the meme
func (s *MongoStore) SetThumbnail(ctx context.Context, memeID, url string) error {
	return updateOne(ctx, s.memes, bson.M{"_id": memeID}, bson.M{"$set": bson.M{"thumbnail": url}})
}

// GetCommentsByMeme retrieves all comments for a meme
func (s *MongoStore) GetCommentsByMeme(ctx context.Context, memeID string) ([]models.Comment, error) {
	return findAll[models.Comment](ctx, s.comments, bson.M{"memeId": memeID})
}

// GetCommentsByUser retrieves all comments written by userID
func (s *MongoStore) GetCommentsByUser(ctx context.Context, userID string) ([]models.Comment, error) {
	return findAll[models.Comment](ctx, s.comments, bson.M{"userId": userID})
}

// UpdateAuthor rewrites the denormalized author fields of a comment
func (s *MongoStore) UpdateAuthor(ctx context.Context, memeID, commentID, name, avatar string) error {
	return updateOne(ctx, s.comments, bson.M{"_id": commentID, "memeId": memeID}, bson.M{"$set": bson.M{
		"userName":   name,
		"userAvatar": avatar,
	}})
}

// NewID returns a random notification ID
func (s *MongoStore) NewID() string {
	return uuid.NewString()
}

// CreateNotification inserts a notification document
func (s *MongoStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.NotifiedUserID == "" {
		return fmt.Errorf("notification %s has no recipient", notification.ID)
	}
	_, err := s.notifications.InsertOne(ctx, notification)
	return err
}

// GetNotificationsByActor retrieves every notification triggered by actorID
func (s *MongoStore) GetNotificationsByActor(ctx context.Context, actorID string) ([]models.Notification, error) {
	return findAll[models.Notification](ctx, s.notifications, bson.M{"userId": actorID})
}

// UpdateActor rewrites the denormalized actor fields of a notification
func (s *MongoStore) UpdateActor(ctx context.Context, recipientID, notificationID, name, avatar string) error {
	return updateOne(ctx, s.notifications, bson.M{"_id": notificationID, "notifiedUserId": recipientID}, bson.M{"$set": bson.M{
		"username":   name,
		"userAvatar": avatar,
	}})
}

// MongoCounterRepository keeps counters as {_id: key, value: n} documents
type MongoCounterRepository struct {
	collection *mongo.Collection
}

// NewMongoCounterRepository creates a new MongoCounterRepository
func NewMongoCounterRepository(db *mongo.Database) *MongoCounterRepository {
	return &MongoCounterRepository{collection: db.Collection("counters")}
}

// Increment upserts the counter with $inc
func (r *MongoCounterRepository) Increment(ctx context.Context, key string) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"value": 1}}, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return doc.Value, nil
}

// IncrementWithThreshold applies increment-or-reset in a single pipeline update.
// A stored zero after the update can only come from a reset.
func (r *MongoCounterRepository) IncrementWithThreshold(ctx context.Context, key string, threshold int64) (int64, bool, error) {
	next := bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$value", 0}}}, 1}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "value", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$gte", Value: bson.A{next, threshold}}},
			0,
			next,
		}}}}}}},
	}

	var doc struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, pipeline, opts).Decode(&doc)
	if err != nil {
		return 0, false, fmt.Errorf("increment %s: %w", key, err)
	}
	return doc.Value, doc.Value == 0, nil
}
