package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/accounts/internal/core/domain"
)

const accountCollection = "accounts"

type MongoAccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{coll: db.Collection(accountCollection)}
}

// EnsureIndexes creates the unique username index. Call once at startup;
// it is a no-op when the index already exists.
func (r *MongoAccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName("uniq_accounts_username").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create username index: %w", err)
	}
	return nil
}

type mongoAccount struct {
	ID           string   `bson:"_id"`
	Username     string   `bson:"username"`
	Email        string   `bson:"email"`
	Address      string   `bson:"address,omitempty"`
	Phone        string   `bson:"phone,omitempty"`
	PasswordHash string   `bson:"password_hash"`
	Roles        []string `bson:"roles"`
	ProfileImage *string  `bson:"profile_image"`
	CreatedAt    int64    `bson:"created_at"`
	UpdatedAt    int64    `bson:"updated_at"`
}

func (r *MongoAccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	rec := account.Record()
	if rec.CreatedAt.IsZero() {
		now := time.Now().UTC()
		rec.CreatedAt, rec.UpdatedAt = now, now
	}
	roles := rec.Roles
	if roles == nil {
		roles = []string{}
	}

	doc := mongoAccount{
		ID:           rec.ID,
		Username:     rec.Username,
		Email:        rec.Email,
		Address:      rec.Address,
		Phone:        rec.Phone,
		PasswordHash: rec.PasswordHash,
		Roles:        roles,
		ProfileImage: rec.ProfileImageRef,
		CreatedAt:    rec.CreatedAt.Unix(),
		UpdatedAt:    rec.UpdatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return toDomain(doc), nil
}

func (r *MongoAccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": domain.CanonicalUsername(username)})
}

func (r *MongoAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoAccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"password_hash": hash, "updated_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc mongoAccount
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return toDomain(doc), nil
}

func toDomain(doc mongoAccount) *domain.Account {
	return domain.RestoreAccount(domain.AccountRecord{
		ID:              doc.ID,
		Username:        doc.Username,
		Email:           doc.Email,
		Address:         doc.Address,
		Phone:           doc.Phone,
		PasswordHash:    doc.PasswordHash,
		Roles:           doc.Roles,
		ProfileImageRef: doc.ProfileImage,
		CreatedAt:       unixToTime(doc.CreatedAt),
		UpdatedAt:       unixToTime(doc.UpdatedAt),
	})
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
