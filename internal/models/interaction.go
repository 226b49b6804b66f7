package models

import "time"

// Interaction is a logged touchpoint with a member.
type Interaction struct {
	Base
	FirmID            string    `gorm:"type:uuid;not null;index" json:"firm_id"`
	MemberID          string    `gorm:"type:uuid;not null;index" json:"member_id"`
	Member            *Member   `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Content           string    `gorm:"not null" json:"content"`
	DateOfInteraction time.Time `gorm:"not null;index" json:"date_of_interaction"`
}
