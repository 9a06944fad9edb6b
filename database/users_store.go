package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princinho/storefront/apperrors"
	"github.com/princinho/storefront/models"
	"github.com/princinho/storefront/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoUsers struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) UserStore {
	return &mongoUsers{col: db.Collection(UsersCollection)}
}

func (s *mongoUsers) InsertUser(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, u); err != nil {
		if utils.IsDuplicateKey(err) {
			return apperrors.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *mongoUsers) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *mongoUsers) GetUser(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *mongoUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

// UpsertUserByEmail only writes on insert, so an existing profile (and its role) is never overwritten.
func (s *mongoUsers) UpsertUserByEmail(ctx context.Context, u *models.User) (*models.User, bool, error) {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	raw, err := bson.Marshal(u)
	if err != nil {
		return nil, false, fmt.Errorf("encode user: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("encode user: %w", err)
	}

	res, err := s.col.UpdateOne(ctx,
		bson.M{"email": u.Email},
		bson.M{"$setOnInsert": doc},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return nil, false, fmt.Errorf("upsert user: %w", err)
	}

	stored, err := s.GetUserByEmail(ctx, u.Email)
	if err != nil {
		return nil, false, err
	}
	return stored, res.UpsertedCount == 1, nil
}

func (s *mongoUsers) UpdateUser(ctx context.Context, id bson.ObjectID, set bson.M) error {
	res, err := s.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		if utils.IsDuplicateKey(err) {
			return apperrors.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}

func (s *mongoUsers) IncrementOrderStats(ctx context.Context, id bson.ObjectID, at time.Time) error {
	res, err := s.col.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"orderHistory": 1, "orders": 1},
		"$set": bson.M{"lastOrderDate": at, "updatedAt": at},
	})
	if err != nil {
		return fmt.Errorf("update order stats: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user")
	}
	return nil
}

type mongoRefreshTokens struct {
	col *mongo.Collection
}

func NewRefreshTokenStore(db *mongo.Database) RefreshTokenStore {
	return &mongoRefreshTokens{col: db.Collection(RefreshTokensCollection)}
}

func (s *mongoRefreshTokens) InsertRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	if rt.ID.IsZero() {
		rt.ID = bson.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, rt); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (s *mongoRefreshTokens) FindActiveRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.col.FindOne(ctx, bson.M{
		"tokenHash": tokenHash,
		"revokedAt": bson.M{"$exists": false},
		"expiresAt": bson.M{"$gt": now},
	}).Decode(&rt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("refresh token")
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

func (s *mongoRefreshTokens) RevokeRefreshToken(ctx context.Context, id bson.ObjectID, replacedBy *string, at time.Time) error {
	set := bson.M{"revokedAt": at}
	if replacedBy != nil {
		set["replacedBy"] = *replacedBy
	}
	if _, err := s.col.UpdateByID(ctx, id, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *mongoRefreshTokens) RevokeRefreshTokenByHash(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := s.col.UpdateOne(ctx, bson.M{
		"tokenHash": tokenHash,
		"revokedAt": bson.M{"$exists": false},
	}, bson.M{
		"$set": bson.M{"revokedAt": at},
	})
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *mongoRefreshTokens) RevokeAllRefreshTokens(ctx context.Context, userID bson.ObjectID, at time.Time) error {
	_, err := s.col.UpdateMany(ctx, bson.M{
		"userId":    userID,
		"revokedAt": bson.M{"$exists": false},
	}, bson.M{
		"$set": bson.M{"revokedAt": at},
	})
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
