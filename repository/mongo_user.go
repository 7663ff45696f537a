package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/akinalp/tms/database"
	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
)

// mongoUserRepo, UserRepository'nin MongoDB implementasyonu.
// _id alanında UUID string tutulur; SQLite ile aynı ID biçimi.
type mongoUserRepo struct {
	users *mongodriver.Collection
}

// NewMongoUserRepo, constructor.
func NewMongoUserRepo(db *mongodriver.Database) UserRepository {
	return &mongoUserRepo{users: db.Collection(database.UsersCollection)}
}

func (r *mongoUserRepo) Create(ctx context.Context, user *models.User) error {
	const op = "repository/mongo/CreateUser"

	now := dbNow()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: User already exists", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *mongoUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *mongoUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.D) (*models.User, error) {
	const op = "repository/mongo/FindUser"

	var u models.User
	err := r.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: User not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (r *mongoUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	const op = "repository/mongo/GetUsersByIDs"

	result := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cur, err := r.users.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		result[u.ID] = &u
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return result, nil
}

func (r *mongoUserRepo) Update(ctx context.Context, user *models.User) error {
	const op = "repository/mongo/UpdateUser"

	user.UpdatedAt = dbNow()
	res, err := r.users.UpdateByID(ctx, user.ID, bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: user.Name},
		{Key: "email", Value: user.Email},
		{Key: "role", Value: user.Role},
		{Key: "updatedAt", Value: user.UpdatedAt},
	}}})
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: Email already in use", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: User not found", pkg.ErrNotFound)
	}
	return nil
}

func (r *mongoUserRepo) Count(ctx context.Context) (int, error) {
	n, err := r.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("repository/mongo/CountUsers: %w", err)
	}
	return int(n), nil
}
