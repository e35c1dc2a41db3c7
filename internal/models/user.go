package models

import "time"

// User is the persisted account plus the medical profile the prompt composer
// reads. The password hash never serializes.
type User struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash   string    `gorm:"type:varchar(100);not null" json:"-"`
	Name           string    `gorm:"type:varchar(100);not null" json:"name"`
	Age            int       `gorm:"not null" json:"age"`
	BloodGroup     string    `gorm:"type:varchar(3)" json:"blood_group"`
	MedicalInfo    string    `gorm:"type:text" json:"medical_info"`
	MedicalHistory string    `gorm:"type:text" json:"medical_history"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

var bloodGroups = map[string]bool{
	"A+": true, "A-": true,
	"B+": true, "B-": true,
	"AB+": true, "AB-": true,
	"O+": true, "O-": true,
}

// ValidBloodGroup reports whether s is one of the eight ABO/Rh groups.
// Empty is allowed; the field is optional.
func ValidBloodGroup(s string) bool {
	return s == "" || bloodGroups[s]
}
