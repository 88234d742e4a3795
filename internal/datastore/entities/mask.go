package entities

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaskKind identifies the explainability algorithm that produced a mask.
// Values are stored as snake_case strings.
type MaskKind string

const (
	MaskOcclusion           MaskKind = "occlusion"
	MaskSaliency            MaskKind = "saliency"
	MaskLayerGradcam        MaskKind = "layer_gradcam"
	MaskIntegratedGradients MaskKind = "integrated_gradients"
	MaskGuidedGradcam       MaskKind = "guided_gradcam"
	MaskGradientShap        MaskKind = "gradient_shap"
)

// MaskKinds lists every kind in classification priority order.
var MaskKinds = []MaskKind{
	MaskOcclusion,
	MaskSaliency,
	MaskLayerGradcam,
	MaskIntegratedGradients,
	MaskGuidedGradcam,
	MaskGradientShap,
}

// Valid reports whether k is one of the known kinds.
func (k MaskKind) Valid() bool {
	return slices.Contains(MaskKinds, k)
}

// Label returns a display name, e.g. "Integrated Gradients".
// Casers are stateful, so one is built per call.
func (k MaskKind) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(k), "_", " "))
}

// Mask is a derived overlay image owned by a Frame.
type Mask struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FrameID   uint      `gorm:"column:image_id;not null;uniqueIndex:idx_masks_identity,priority:1" json:"image_id"`
	Kind      MaskKind  `gorm:"column:mask_type;size:32;not null;uniqueIndex:idx_masks_identity,priority:2" json:"mask_type"`
	Filename  string    `gorm:"size:255;not null;uniqueIndex:idx_masks_identity,priority:3" json:"filename"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (Mask) TableName() string {
	return "masks"
}
