package mongo

import (
	"context"
	"strings"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/DGISsoft/prodreport/services/mongo/command"
	"github.com/DGISsoft/prodreport/services/mongo/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const usersCollection = "users"

type UserService struct {
	*MongoService
}

func NewUserService(mongoService *MongoService) *UserService {
	return &UserService{MongoService: mongoService}
}

func (s *UserService) users() *mongo.Collection {
	return s.GetCollection(usersCollection)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := query.FindOne(ctx, s.users(), filter, &user); err != nil {
		return nil, storeErr(err, "get user", "user")
	}
	return &user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := query.FindByID(ctx, s.users(), id, &user); err != nil {
		return nil, storeErr(err, "get user", "user")
	}
	return &user, nil
}

// CreateUser stores user with the bcrypt hash of password.
func (s *UserService) CreateUser(ctx context.Context, user *models.User, password string) error {
	if err := user.Normalize(); err != nil {
		return errs.Validation("%v", err)
	}
	if err := user.SetPassword(password); err != nil {
		return errs.Validation("%v", err)
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := command.Insert(ctx, s.users(), user); err != nil {
		return storeErr(err, "create user", "user "+user.Email)
	}
	return nil
}
