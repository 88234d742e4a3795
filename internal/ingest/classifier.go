package ingest

import (
	"fmt"
	"strings"

	"github.com/xailab/xai-review/internal/datastore/entities"
	"github.com/xailab/xai-review/internal/errors"
)

// Class is the coarse result of classifying a filename.
type Class int

const (
	ClassUnrecognized Class = iota
	ClassOriginalFrame
	ClassDerivedMask
)

// String returns the class name used in logs.
func (c Class) String() string {
	switch c {
	case ClassOriginalFrame:
		return "original_frame"
	case ClassDerivedMask:
		return "derived_mask"
	default:
		return "unrecognized"
	}
}

// Kind is the classification of one filename. Mask is set only for
// ClassDerivedMask.
type Kind struct {
	Class Class
	Mask  entities.MaskKind
}

// framePrefix marks original frames and, inside mask names, the start of
// the source frame's filename.
const framePrefix = "video_"

// maskMarkers is checked in order; the first marker contained in the
// filename decides the mask kind.
var maskMarkers = []struct {
	marker string
	kind   entities.MaskKind
}{
	{"occlusion_colored_", entities.MaskOcclusion},
	{"saliency_colored_", entities.MaskSaliency},
	{"layer_gradcam_colored_", entities.MaskLayerGradcam},
	{"integrated_gradients_colored_", entities.MaskIntegratedGradients},
	{"guided_gradcam_colored_", entities.MaskGuidedGradcam},
	{"gradient_shap_colored_", entities.MaskGradientShap},
}

// Classify maps a filename to exactly one Kind. Markers are matched by
// substring, so a frame name that happens to embed a marker still counts as
// a frame when it starts with "video_".
func Classify(filename string) Kind {
	if strings.HasPrefix(filename, framePrefix) {
		return Kind{Class: ClassOriginalFrame}
	}
	for _, m := range maskMarkers {
		if strings.Contains(filename, m.marker) {
			return Kind{Class: ClassDerivedMask, Mask: m.kind}
		}
	}
	return Kind{Class: ClassUnrecognized}
}

// DeriveFrameFilename returns the source frame filename of a mask: the part
// of maskFilename starting at the first "video_".
func DeriveFrameFilename(maskFilename string) (string, error) {
	idx := strings.Index(maskFilename, framePrefix)
	if idx < 0 {
		return "", errors.New(fmt.Errorf("%w: %s", ErrAmbiguousOrigin, maskFilename)).
			Component("ingest").
			Category(errors.CategoryClassify).
			Context("filename", maskFilename).
			Build()
	}
	return maskFilename[idx:], nil
}
