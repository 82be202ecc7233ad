package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrImageTakenWithoutImage = errors.New("volunteer post marked image_taken without an image")

type VolunteerPost struct {
	ID                 uint      `gorm:"column:id;primaryKey" json:"id"`
	Type               string    `gorm:"column:type;size:50;not null" json:"type"`
	CreatedAt          time.Time `gorm:"column:timestamp" json:"timestamp"`
	UserType           string    `gorm:"column:user_type;size:100;not null" json:"user_type"`
	HelpDescription    string    `gorm:"column:help_description;size:500;not null" json:"help_description"`
	ImageTaken         bool      `gorm:"column:image_taken;not null" json:"image_taken"`
	Image              *string   `gorm:"column:image;size:255" json:"image"`
	// The safety flags default to true in the handler, not the schema. A
	// column default would make GORM skip explicit false values on insert.
	AreaSafe           bool `gorm:"column:area_safe;not null" json:"area_safe"`
	NoMedicalEmergency bool `gorm:"column:no_medical_emergency;not null" json:"no_medical_emergency"`
	Location           string    `gorm:"column:location;size:255;not null" json:"location"`
	Latitude           float64   `gorm:"column:latitude;not null" json:"latitude"`
	Longitude          float64   `gorm:"column:longitude;not null" json:"longitude"`
	UserID             *uint     `gorm:"column:user_id" json:"user_id,omitempty"`
}

func (VolunteerPost) TableName() string { return "volunteer_posts" }

// BeforeCreate enforces the store-layer invariant: a post claiming an image
// was taken must carry an image reference.
func (p *VolunteerPost) BeforeCreate(tx *gorm.DB) error {
	if p.ImageTaken && (p.Image == nil || *p.Image == "") {
		return ErrImageTakenWithoutImage
	}
	return nil
}
