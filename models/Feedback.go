package models

import "gorm.io/gorm"

// Feedback is an append-only message from a visitor, no lifecycle beyond creation.
type Feedback struct {
	gorm.Model
	FullName string `json:"fullName" gorm:"size:200;not null"`
	Email    string `json:"email" gorm:"size:256;not null"`
	Message  string `json:"message" gorm:"type:text;not null"`
}
