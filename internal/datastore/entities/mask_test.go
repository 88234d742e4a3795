package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskKindLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Occlusion", MaskOcclusion.Label())
	assert.Equal(t, "Layer Gradcam", MaskLayerGradcam.Label())
	assert.Equal(t, "Integrated Gradients", MaskIntegratedGradients.Label())
	assert.Equal(t, "Gradient Shap", MaskGradientShap.Label())
}

func TestMaskKindValid(t *testing.T) {
	t.Parallel()

	for _, k := range MaskKinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, MaskKind("layergradcam").Valid())
	assert.False(t, MaskKind("").Valid())
	assert.Len(t, MaskKinds, 6)
}
