package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/blog_backend/internal/apperrors"
	"github.com/SscSPs/blog_backend/internal/core/domain"
	portsrepo "github.com/SscSPs/blog_backend/internal/core/ports/repositories"
	"github.com/SscSPs/blog_backend/internal/models"
	"github.com/SscSPs/blog_backend/internal/utils/mapping"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersCollection is the collection holding user documents.
const UsersCollection = "users"

// MongoUserRepository stores users as documents keyed by user id.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository returns a repository over db.users.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(UsersCollection)}
}

var _ portsrepo.UserRepositoryFacade = (*MongoUserRepository)(nil)

// EnsureIndexes creates the unique identity indexes. Safe to call on every start.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: options.Index().SetName("created_at_desc")},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	if _, err := r.coll.InsertOne(ctx, mapping.ToUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("username or email already in use: %w", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, field, value string) (*domain.User, error) {
	var doc models.UserDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: field, Value: value}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by %s: %w", field, err)
	}
	user := mapping.FromUserDocument(doc)
	return &user, nil
}

func (r *MongoUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(ctx, "_id", userID)
}

func (r *MongoUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *MongoUserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username", username)
}

func (r *MongoUserRepository) FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var docs []models.UserDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]domain.User, len(docs))
	for i, doc := range docs {
		users[i] = mapping.FromUserDocument(doc)
	}
	return users, nil
}

func (r *MongoUserRepository) UpdateUserFields(ctx context.Context, userID string, update domain.UserUpdate) error {
	set := bson.D{}
	unset := bson.D{}
	if update.Username != nil {
		set = append(set, bson.E{Key: "username", Value: *update.Username})
	}
	if update.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *update.Email})
	}
	if update.PasswordHash != nil {
		set = append(set, bson.E{Key: "password_hash", Value: *update.PasswordHash})
	}
	if update.PasswordChangedAt != nil {
		set = append(set, bson.E{Key: "password_changed_at", Value: update.PasswordChangedAt.UTC()})
	}
	if update.IsAdmin != nil {
		set = append(set, bson.E{Key: "is_admin", Value: *update.IsAdmin})
	}
	if update.FailedLoginAttempts != nil {
		set = append(set, bson.E{Key: "failed_login_attempts", Value: *update.FailedLoginAttempts})
	}
	if update.ClearLockUntil {
		unset = append(unset, bson.E{Key: "lock_until", Value: ""})
	} else if update.LockUntil != nil {
		set = append(set, bson.E{Key: "lock_until", Value: update.LockUntil.UTC()})
	}
	if update.ClearRefreshToken {
		unset = append(unset, bson.E{Key: "refresh_token_hash", Value: ""})
	} else if update.RefreshTokenHash != nil {
		set = append(set, bson.E{Key: "refresh_token_hash", Value: *update.RefreshTokenHash})
	}
	if !update.LastUpdatedAt.IsZero() {
		set = append(set, bson.E{Key: "last_updated_at", Value: update.LastUpdatedAt.UTC()})
	}
	if update.LastUpdatedBy != "" {
		set = append(set, bson.E{Key: "last_updated_by", Value: update.LastUpdatedBy})
	}

	doc := bson.D{}
	if len(set) > 0 {
		doc = append(doc, bson.E{Key: "$set", Value: set})
	}
	if len(unset) > 0 {
		doc = append(doc, bson.E{Key: "$unset", Value: unset})
	}
	if len(doc) == 0 {
		return nil
	}

	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: userID}}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("username or email already in use: %w", apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}
	return nil
}

// IncrementFailedLogins uses an update pipeline so the threshold is compared
// against the incremented value inside a single write.
func (r *MongoUserRepository) IncrementFailedLogins(ctx context.Context, userID string, threshold int, lockUntil time.Time, at time.Time) (*domain.LockoutState, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "failed_login_attempts", Value: bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$failed_login_attempts", 0}}}, 1}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "lock_until", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gte", Value: bson.A{"$failed_login_attempts", threshold}}},
				lockUntil.UTC(),
				nil,
			}}}},
			{Key: "last_updated_at", Value: at.UTC()},
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: "failed_login_attempts", Value: 1}, {Key: "lock_until", Value: 1}})

	var doc models.UserDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: userID}}, pipeline, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to increment failed logins: %w", err)
	}
	return &domain.LockoutState{FailedLoginAttempts: doc.FailedLoginAttempts, LockUntil: doc.LockUntil}, nil
}

func (r *MongoUserRepository) SwapRefreshToken(ctx context.Context, userID string, expectedHash string, newHash string, at time.Time) error {
	filter := bson.D{{Key: "_id", Value: userID}, {Key: "refresh_token_hash", Value: expectedHash}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "refresh_token_hash", Value: newHash},
		{Key: "last_updated_at", Value: at.UTC()},
	}}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to swap refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *MongoUserRepository) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: userID}})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user %s: %w", userID, apperrors.ErrNotFound)
	}
	return nil
}
