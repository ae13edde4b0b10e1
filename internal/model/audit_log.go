package model

// AuditLog records administrative actions (publishing tests, reviewing
// results, user management) for later inspection.
type AuditLog struct {
	BaseModel
	UserID   uint   `gorm:"index" json:"userId"`
	Action   string `gorm:"size:60;not null" json:"action"`
	Entity   string `gorm:"size:40" json:"entity"`
	EntityID uint   `gorm:"index" json:"entityId"`
	Detail   string `gorm:"type:text" json:"detail,omitempty"`
	IP       string `gorm:"size:45" json:"ip,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
