package model

// Service is a named external system credentials belong to.
type Service struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100"`
	CreatedByID uint
	CreatedBy   User
}

func (Service) TableName() string {
	return "services"
}

// Tag is a free-form label attached to credentials.
type Tag struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100"`
	CreatedByID uint
	CreatedBy   User
}

func (Tag) TableName() string {
	return "tags"
}
