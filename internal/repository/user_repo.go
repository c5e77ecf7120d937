package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gyanoda/user-service/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrDuplicateEmail = errors.New("email already exists")
	ErrDuplicatePhone = errors.New("phone number already exists")
	ErrUserNotFound   = errors.New("user not found")
)

type mongoUser struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	Email      string             `bson:"email"`
	Phone      string             `bson:"phone,omitempty"`
	Location   string             `bson:"location,omitempty"`
	Password   string             `bson:"password,omitempty"`
	Avatar     entity.Avatar      `bson:"avatar,omitempty"`
	Role       string             `bson:"role"`
	IsVerified bool               `bson:"is_verified"`
	Provider   string             `bson:"provider"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}

func (m *mongoUser) toEntity() *entity.User {
	return &entity.User{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Location:   m.Location,
		Password:   m.Password,
		Avatar:     m.Avatar,
		Role:       m.Role,
		IsVerified: m.IsVerified,
		Provider:   m.Provider,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// UserRepository is the Mongo credential store. The unique indexes on email
// and phone are the source of truth for uniqueness; application-level
// existence checks are only a fast-fail ahead of the write.
type UserRepository struct {
	db     *mongo.Database
	logger *zap.Logger
}

func NewUserRepository(db *mongo.Database, logger *zap.Logger) *UserRepository {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("Failed to create indexes for users collection (may already exist)", zap.Error(err))
	}

	return &UserRepository{
		db:     db,
		logger: logger.Named("UserRepository"),
	}
}

func (r *UserRepository) users() *mongo.Collection {
	return r.db.Collection("users")
}

// mapDuplicateKey translates a Mongo E11000 write error into the domain
// duplicate error for the offending index.
func mapDuplicateKey(err error) error {
	var writeException mongo.WriteException
	if errors.As(err, &writeException) {
		for _, writeError := range writeException.WriteErrors {
			if writeError.Code == 11000 {
				if strings.Contains(writeError.Message, "email_1") {
					return ErrDuplicateEmail
				}
				if strings.Contains(writeError.Message, "phone_1") {
					return ErrDuplicatePhone
				}
			}
		}
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 11000 {
		if strings.Contains(cmdErr.Message, "email_1") {
			return ErrDuplicateEmail
		}
		if strings.Contains(cmdErr.Message, "phone_1") {
			return ErrDuplicatePhone
		}
	}
	return err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var dbUser mongoUser
	err := r.users().FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by email", zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

// FindByPhone expects an already-canonicalized phone number.
func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*entity.User, error) {
	var dbUser mongoUser
	err := r.users().FindOne(ctx, bson.M{"phone": phone}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by phone", zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

func (r *UserRepository) FindByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error) {
	var dbUser mongoUser
	err := r.users().FindOne(ctx, bson.M{"_id": userID}).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		r.logger.Error("Database error fetching user by ID", zap.String("userID", userID.Hex()), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

// Create inserts a new user record. The caller supplies an already-hashed
// password and normalized email/phone.
func (r *UserRepository) Create(ctx context.Context, user *entity.User) (primitive.ObjectID, error) {
	now := time.Now()
	doc := mongoUser{
		ID:         primitive.NewObjectID(),
		Name:       user.Name,
		Email:      NormalizeEmail(user.Email),
		Phone:      user.Phone,
		Location:   user.Location,
		Password:   user.Password,
		Avatar:     user.Avatar,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		Provider:   user.Provider,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if doc.Role == "" {
		doc.Role = entity.RoleUser
	}
	if doc.Provider == "" {
		doc.Provider = entity.ProviderEmail
	}

	if _, err := r.users().InsertOne(ctx, doc); err != nil {
		mapped := mapDuplicateKey(err)
		if errors.Is(mapped, ErrDuplicateEmail) || errors.Is(mapped, ErrDuplicatePhone) {
			r.logger.Warn("Duplicate key during user creation", zap.String("email", doc.Email), zap.Error(err))
		} else {
			r.logger.Error("Database error during user creation", zap.String("email", doc.Email), zap.Error(err))
		}
		return primitive.NilObjectID, mapped
	}

	user.ID = doc.ID
	user.Email = doc.Email
	user.Role = doc.Role
	user.Provider = doc.Provider
	user.CreatedAt = doc.CreatedAt
	user.UpdatedAt = doc.UpdatedAt
	r.logger.Info("User created", zap.String("userID", doc.ID.Hex()))
	return doc.ID, nil
}

// VerifyAndMaterialize upserts by email at activation time: the pending
// account existed only inside the signed ticket until now. The upsert means
// two interleaved activations for the same email overwrite rather than
// conflict; the unique indexes still guard cross-account collisions.
func (r *UserRepository) VerifyAndMaterialize(ctx context.Context, pending *entity.PendingUser) (*entity.User, error) {
	now := time.Now()
	email := NormalizeEmail(pending.Email)

	update := bson.M{
		"$set": bson.M{
			"is_verified": true,
			"name":        pending.Name,
			"email":       email,
			"password":    pending.Password,
			"phone":       pending.Phone,
			"location":    pending.Location,
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{
			"role":       entity.RoleUser,
			"provider":   entity.ProviderEmail,
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var dbUser mongoUser
	err := r.users().FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&dbUser)
	if err != nil {
		mapped := mapDuplicateKey(err)
		if errors.Is(mapped, ErrDuplicatePhone) {
			r.logger.Warn("Duplicate phone during activation upsert", zap.String("email", email))
			return nil, mapped
		}
		r.logger.Error("Database error during activation upsert", zap.String("email", email), zap.Error(err))
		return nil, mapped
	}
	r.logger.Info("User verified and materialized", zap.String("userID", dbUser.ID.Hex()))
	return dbUser.toEntity(), nil
}

// UpdateFields applies a partial $set on the user document. Keys must be
// bson field names; email values must be pre-normalized by the caller.
func (r *UserRepository) UpdateFields(ctx context.Context, userID primitive.ObjectID, fields bson.M) (*entity.User, error) {
	if len(fields) == 0 {
		return r.FindByID(ctx, userID)
	}
	fields["updated_at"] = time.Now()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var dbUser mongoUser
	err := r.users().FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": fields}, opts).Decode(&dbUser)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		mapped := mapDuplicateKey(err)
		if errors.Is(mapped, ErrDuplicateEmail) || errors.Is(mapped, ErrDuplicatePhone) {
			r.logger.Warn("Duplicate key during user update", zap.String("userID", userID.Hex()))
			return nil, mapped
		}
		r.logger.Error("Database error during user update", zap.String("userID", userID.Hex()), zap.Error(err))
		return nil, err
	}
	return dbUser.toEntity(), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID primitive.ObjectID, passwordHash string) error {
	update := bson.M{"$set": bson.M{"password": passwordHash, "updated_at": time.Now()}}
	result, err := r.users().UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		r.logger.Error("Database error updating password", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	r.logger.Info("Password updated", zap.String("userID", userID.Hex()))
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	result, err := r.users().DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		r.logger.Error("Database error deleting user", zap.String("userID", userID.Hex()), zap.Error(err))
		return err
	}
	if result.DeletedCount == 0 {
		return ErrUserNotFound
	}
	r.logger.Info("User deleted", zap.String("userID", userID.Hex()))
	return nil
}

func (r *UserRepository) List(ctx context.Context, skip, limit int64) ([]*entity.User, error) {
	findOptions := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.M{"created_at": -1})

	cursor, err := r.users().Find(ctx, bson.M{}, findOptions)
	if err != nil {
		r.logger.Error("Database error listing users", zap.Error(err))
		return nil, err
	}
	defer cursor.Close(ctx)

	var dbUsers []*mongoUser
	if err = cursor.All(ctx, &dbUsers); err != nil {
		r.logger.Error("Error decoding listed users", zap.Error(err))
		return nil, err
	}

	users := make([]*entity.User, 0, len(dbUsers))
	for _, dbUser := range dbUsers {
		users = append(users, dbUser.toEntity())
	}
	return users, nil
}
