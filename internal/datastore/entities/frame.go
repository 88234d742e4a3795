package entities

import "time"

// Frame is an original frame found on disk. PatientNumber is the zero-padded
// directory name it was ingested from.
type Frame struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Filename      string    `gorm:"size:255;not null;uniqueIndex:idx_images_patient_filename,priority:2" json:"filename"`
	PatientNumber string    `gorm:"column:patient_nb;size:32;not null;uniqueIndex:idx_images_patient_filename,priority:1" json:"patient_nb"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	Masks []Mask `gorm:"foreignKey:FrameID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (Frame) TableName() string {
	return "images"
}
