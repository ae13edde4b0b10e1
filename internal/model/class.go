package model

// Class groups students for test assignment and comparative reporting.
type Class struct {
	BaseModel
	Name         string `gorm:"size:100;not null" json:"name"`
	Description  string `gorm:"type:text" json:"description"`
	InstructorID uint   `gorm:"index" json:"instructorId"`
	Instructor   *User  `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Students     []User `gorm:"many2many:class_students" json:"students,omitempty"`
}

func (Class) TableName() string {
	return "classes"
}
