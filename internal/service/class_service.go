package service

import (
	"cbt_backend/internal/model"
	"cbt_backend/internal/repository"
	"cbt_backend/internal/util"

	"gorm.io/gorm"
)

type ClassService struct {
	ClassRepo *repository.ClassRepository
	UserRepo  *repository.UserRepository
}

func NewClassService(classRepo *repository.ClassRepository, userRepo *repository.UserRepository) *ClassService {
	return &ClassService{ClassRepo: classRepo, UserRepo: userRepo}
}

func (s *ClassService) CreateClass(instructorID uint, class *model.Class) (*model.Class, error) {
	if class.Name == "" {
		return nil, util.NewValidationError("name", "is required")
	}
	class.InstructorID = instructorID
	if err := s.ClassRepo.Create(class); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *ClassService) GetClass(id uint) (*model.Class, error) {
	class, err := s.ClassRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &util.NotFoundError{Entity: "class", ID: id}
		}
		return nil, err
	}
	return class, nil
}

func (s *ClassService) UpdateClass(id uint, name, description string) (*model.Class, error) {
	class, err := s.GetClass(id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		class.Name = name
	}
	class.Description = description
	if err := s.ClassRepo.Update(class); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *ClassService) DeleteClass(id uint) error {
	if _, err := s.GetClass(id); err != nil {
		return err
	}
	return s.ClassRepo.Delete(id)
}

func (s *ClassService) ListClasses(instructorID uint, page, limit int) ([]model.Class, int64, error) {
	return s.ClassRepo.List(instructorID, page, limit)
}

// Enroll adds a student to a class. Only student accounts can be enrolled.
func (s *ClassService) Enroll(classID, studentID uint) error {
	if _, err := s.GetClass(classID); err != nil {
		return err
	}
	user, err := s.UserRepo.FindByID(studentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &util.NotFoundError{Entity: "user", ID: studentID}
		}
		return err
	}
	if user.Role != model.Student {
		return util.NewValidationError("studentId", "only student accounts can be enrolled")
	}
	return s.ClassRepo.AddStudent(classID, studentID)
}

func (s *ClassService) Unenroll(classID, studentID uint) error {
	if _, err := s.GetClass(classID); err != nil {
		return err
	}
	return s.ClassRepo.RemoveStudent(classID, studentID)
}
