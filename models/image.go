package models

import "time"

// Image is created synchronously on upload and is immutable afterwards,
// except for the one-to-one classification attached by the background worker.
type Image struct {
	ID        uint      `gorm:"column:id;primaryKey" json:"id"`
	FileName  string    `gorm:"column:file_name;size:255;not null" json:"file_name"`
	Latitude  *float64  `gorm:"column:latitude" json:"latitude"`
	Longitude *float64  `gorm:"column:longitude" json:"longitude"`
	Altitude  *float64  `gorm:"column:altitude" json:"altitude"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UserID    *uint     `gorm:"column:user_id" json:"user_id,omitempty"`

	Classification *ImageClassification `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"classification"`
	Survey         *FinalSurvey         `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"survey,omitempty"`
}

func (Image) TableName() string { return "images" }

// ImageClassification shares its primary key with the image it annotates.
// Inserted at most once per image; never updated or deleted on its own.
type ImageClassification struct {
	ImageID           uint   `gorm:"column:image_id;primaryKey" json:"-"`
	FloodLevel        bool   `gorm:"column:flood_level;not null" json:"flood_level"`
	DangerLevel       int    `gorm:"column:danger_level;not null" json:"danger_level"`
	AnnotatedFileName string `gorm:"column:annotated_file_name;size:255;not null" json:"annotated_file_name"`
}

func (ImageClassification) TableName() string { return "image_classifications" }

// FinalSurvey holds the three free-text answers attached to a final-survey
// upload, keyed one-to-one by image id.
type FinalSurvey struct {
	ImageID     uint   `gorm:"column:image_id;primaryKey" json:"-"`
	AnswerOne   string `gorm:"column:answer_one;size:500;not null" json:"answer_one"`
	AnswerTwo   string `gorm:"column:answer_two;size:500;not null" json:"answer_two"`
	AnswerThree string `gorm:"column:answer_three;size:500;not null" json:"answer_three"`
}

func (FinalSurvey) TableName() string { return "final_surveys" }
