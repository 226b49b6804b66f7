package models

import "time"

// EventMode is how an event is attended.
type EventMode string

const (
	EventModeVirtual  EventMode = "Virtual"
	EventModePhysical EventMode = "Physical"
)

// NextStep is the outcome recorded against an event.
type NextStep string

const (
	NextStepConfirmed NextStep = "Confirmed"
	NextStepCancelled NextStep = "Cancelled"
	NextStepDeclined  NextStep = "Declined"
	NextStepTBD       NextStep = "TBD"
)

// Event is a meeting or conference involving a firm's member.
type Event struct {
	Base
	FirmID            string    `gorm:"type:uuid;not null;index" json:"firm_id"`
	MemberID          string    `gorm:"type:uuid;not null;index" json:"member_id"`
	Name              string    `gorm:"not null" json:"name"`
	Type              string    `gorm:"not null" json:"type"`
	Mode              EventMode `gorm:"type:varchar(16);not null" json:"mode"`
	Location          string    `json:"location,omitempty"`
	StartDate         time.Time `gorm:"not null;index" json:"start_date"`
	EndDate           time.Time `gorm:"not null" json:"end_date"`
	RKLAttendees      string    `json:"rkl_attendees,omitempty"`
	NextStep          NextStep  `gorm:"type:varchar(16);not null;default:TBD" json:"next_step"`
	IsInvited         bool      `gorm:"not null;default:false" json:"is_invited"`
	ExchangeIntimated bool      `gorm:"not null;default:false" json:"exchange_intimated"`
}
