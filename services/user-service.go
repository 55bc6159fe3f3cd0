package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"taskhub/backend/logging"
	"taskhub/backend/models"
)

// ErrInvalidCredentials is returned for a wrong email or password. The two
// cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AvatarStore is the file-store collaborator contract. The core only keeps
// the URL it returns; the bytes live with the collaborator.
type AvatarStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// AvatarUpload is a decoded multipart avatar file.
type AvatarUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProfilePatch carries the optional fields of a profile update.
type ProfilePatch struct {
	Name            *string
	CurrentPassword string
	NewPassword     string
	Avatar          *AvatarUpload
	RemoveAvatar    bool
}

type UserService struct {
	UserCollection *mongo.Collection
	Avatars        AvatarStore
}

func NewUserService(userCollection *mongo.Collection, avatars AvatarStore) *UserService {
	return &UserService{UserCollection: userCollection, Avatars: avatars}
}

// Register creates an account. The role defaults to member and is fixed for
// the lifetime of the account.
func (s *UserService) Register(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	name = html.EscapeString(strings.TrimSpace(name))
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, models.NewValidationError("name is required")
	}
	if email == "" {
		return nil, models.NewValidationError("email is required")
	}
	if len(password) < 6 {
		return nil, models.NewValidationError("password must be at least 6 characters long")
	}
	if role == "" {
		role = models.RoleMember
	}
	if !models.IsValidRole(role) {
		return nil, models.NewValidationError("invalid role: %s", role)
	}

	var existing models.User
	err := s.UserCollection.FindOne(ctx, bson.M{"email": email}).Decode(&existing)
	if err == nil {
		return nil, models.NewConflictError("user with email already exists")
	}
	if err != mongo.ErrNoDocuments {
		return nil, models.NewStoreError("find user", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		Password:  string(hashed),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.UserCollection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, models.NewConflictError("user with email already exists")
		}
		return nil, models.NewStoreError("insert user", err)
	}

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: Registered %s user %s", user.Role, user.Email)
	return user, nil
}

// VerifyCredentials checks an email/password pair and returns the matching
// user on success.
func (s *UserService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.UserCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, models.NewStoreError("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.UserCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, models.NewNotFoundError("user")
	}
	if err != nil {
		return nil, models.NewStoreError("find user", err)
	}
	return &user, nil
}

// GetAllUsers returns every account, used by admins to pick members and
// assignees.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.UserCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, models.NewStoreError("find users", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, models.NewStoreError("decode users", err)
	}
	return users, nil
}

// UpdateProfile applies a profile patch for the authenticated user: name,
// password (requires the current one), and the avatar reference. Avatar
// bytes go to the file-store collaborator; only the URL is stored here.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, patch ProfilePatch) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	update := bson.M{}

	if patch.Name != nil {
		name := html.EscapeString(strings.TrimSpace(*patch.Name))
		if name == "" {
			return nil, models.NewValidationError("name cannot be empty")
		}
		update["name"] = name
	}

	if patch.Avatar != nil {
		if user.AvatarURL != "" {
			if err := s.Avatars.Delete(ctx, user.AvatarURL); err != nil {
				logging.Logger.Warnf("Event ID: AVATAR_DELETE_FAILED, Description: Failed to delete previous avatar for user %s: %v", userID.Hex(), err)
			}
		}
		url, err := s.Avatars.Upload(ctx, patch.Avatar.Filename, patch.Avatar.ContentType, patch.Avatar.Data)
		if err != nil {
			return nil, err
		}
		update["avatarUrl"] = url
	} else if patch.RemoveAvatar && user.AvatarURL != "" {
		if err := s.Avatars.Delete(ctx, user.AvatarURL); err != nil {
			logging.Logger.Warnf("Event ID: AVATAR_DELETE_FAILED, Description: Failed to delete avatar for user %s: %v", userID.Hex(), err)
		}
		update["avatarUrl"] = ""
	}

	if patch.NewPassword != "" {
		if patch.CurrentPassword == "" {
			return nil, models.NewValidationError("current password required to change password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(patch.CurrentPassword)); err != nil {
			return nil, models.NewValidationError("current password is incorrect")
		}
		if len(patch.NewPassword) < 6 {
			return nil, models.NewValidationError("password must be at least 6 characters long")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(patch.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %v", err)
		}
		update["password"] = string(hashed)
	}

	if len(update) == 0 {
		return user, nil
	}
	update["updatedAt"] = time.Now().UTC()

	if _, err := s.UserCollection.UpdateByID(ctx, userID, bson.M{"$set": update}); err != nil {
		return nil, models.NewStoreError("update user", err)
	}
	return s.GetByID(ctx, userID)
}
