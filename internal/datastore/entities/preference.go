package entities

import "time"

// Preference records that a user ranked the masks of one frame. A user has
// at most one preference per frame; re-submitting replaces it.
type Preference struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_preferences_user_image,priority:1" json:"user_id"`
	FrameID   uint      `gorm:"column:image_id;not null;uniqueIndex:idx_preferences_user_image,priority:2;index" json:"image_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	User   *User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Frame  *Frame            `gorm:"foreignKey:FrameID;constraint:OnDelete:CASCADE" json:"-"`
	Events []PreferenceEvent `gorm:"foreignKey:PreferenceID;constraint:OnDelete:CASCADE" json:"events,omitempty"`
}

// TableName returns the table name for GORM.
func (Preference) TableName() string {
	return "preferences"
}

// PreferenceEvent is the rank a user gave one mask. Rank 1 is the best.
type PreferenceEvent struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	PreferenceID uint `gorm:"not null;index" json:"preference_id"`
	MaskID       uint `gorm:"not null;index" json:"mask_id"`
	Rank         int  `gorm:"not null" json:"rank"`

	Mask *Mask `gorm:"foreignKey:MaskID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (PreferenceEvent) TableName() string {
	return "preference_events"
}

// All returns every entity in migration order.
func All() []any {
	return []any{
		&Frame{},
		&Mask{},
		&User{},
		&Preference{},
		&PreferenceEvent{},
	}
}
