package service

import (
	"cbt_backend/internal/model"
	"cbt_backend/internal/repository"
	"cbt_backend/internal/util"

	"gorm.io/gorm"
)

type UserService struct {
	UserRepo *repository.UserRepository
	clock    Clock
}

func NewUserService(userRepo *repository.UserRepository, clock Clock) *UserService {
	return &UserService{UserRepo: userRepo, clock: clock}
}

func (s *UserService) GetUser(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "user", ID: id}
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(role model.UserRole, search string, page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.List(role, search, page, limit)
}

func (s *UserService) UpdateProfile(id uint, name, avatar string) (*model.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		user.Name = name
	}
	if avatar != "" {
		user.Avatar = avatar
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetRole is an admin action.
func (s *UserService) SetRole(id uint, role model.UserRole) (*model.User, error) {
	switch role {
	case model.Student, model.Instructor, model.Admin:
	default:
		return nil, util.NewValidationError("role", "unknown role")
	}

	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) SetDisabled(id uint, disabled bool) error {
	if _, err := s.GetUser(id); err != nil {
		return err
	}
	return s.UserRepo.SetDisabled(id, disabled)
}

func (s *UserService) TouchLastSeen(id uint) {
	_ = s.UserRepo.UpdateLastSeen(id, s.clock.Now())
}
