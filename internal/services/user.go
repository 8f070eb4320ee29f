package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/apperr"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/storage"
	"github.com/ahmadmdabit/MeetingSystem-sub001/internal/store"
	"github.com/ahmadmdabit/MeetingSystem-sub001/types"
	"github.com/google/uuid"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetProfilePictureKey(ctx context.Context, userID int64, key string) error
	GetRoles(ctx context.Context, userID int64) ([]string, error)
}

// RoleAssigner grants catalog roles to users.
type RoleAssigner interface {
	Assign(ctx context.Context, userID int64, roleName string) error
}

// UserService encapsulates account use-cases: registration, actor
// resolution, and profile pictures.
type UserService struct {
	repo     UserRepository
	roles    RoleAssigner
	pictures storage.ObjectStorage
}

func NewUserService(repo UserRepository, roles RoleAssigner, pictures storage.ObjectStorage) *UserService {
	return &UserService{repo: repo, roles: roles, pictures: pictures}
}

// Register creates the account and grants it the User role. A duplicate
// email is a Conflict.
func (s *UserService) Register(ctx context.Context, user types.User) (types.User, error) {
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.User{}, apperr.Conflictf("email %s is already registered", user.Email)
		}
		return types.User{}, apperr.Dependency(err)
	}
	if err := s.roles.Assign(ctx, created.ID, types.RoleUser); err != nil {
		return types.User{}, apperr.Dependency(err)
	}
	return created, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, translateStoreErr(err)
	}
	return user, nil
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, translateStoreErr(err)
	}
	return user, nil
}

// Actor resolves the user's identity and role set for authorization.
func (s *UserService) Actor(ctx context.Context, userID int64) (types.Actor, error) {
	roles, err := s.repo.GetRoles(ctx, userID)
	if err != nil {
		return types.Actor{}, apperr.Dependency(err)
	}
	return types.Actor{ID: userID, Roles: roles}, nil
}

// SetProfilePicture streams the picture to the profile-pictures bucket and
// records its key, replacing any previous picture.
func (s *UserService) SetProfilePicture(ctx context.Context, userID int64, contentType string, size int64, r io.Reader) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", translateStoreErr(err)
	}

	key := fmt.Sprintf("users/%d/%s", userID, uuid.New().String())
	if err := s.pictures.Put(ctx, key, r, size, contentType); err != nil {
		return "", apperr.Dependency(err)
	}
	if err := s.repo.SetProfilePictureKey(ctx, userID, key); err != nil {
		return "", translateStoreErr(err)
	}
	if user.ProfilePictureKey != "" {
		// Old picture is unreferenced now; best effort removal.
		_ = s.pictures.Delete(ctx, user.ProfilePictureKey)
	}
	return key, nil
}
