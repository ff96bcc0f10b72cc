package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_Validate(t *testing.T) {
	assert.NoError(t, testFrame(canvas(4, 3, feltGreen), 0).Validate())
	assert.ErrorIs(t, Frame{}.Validate(), ErrInvalidFrame)
	assert.ErrorIs(t, testFrame(image.NewRGBA(image.Rect(0, 0, 0, 0)), 0).Validate(), ErrInvalidFrame)
}

func TestImageToMat_BGROrder(t *testing.T) {
	img := canvas(3, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	mat, err := ImageToMat(img)
	require.NoError(t, err)
	defer mat.Close()

	assert.Equal(t, 2, mat.Rows())
	assert.Equal(t, 3, mat.Cols())
	assert.Equal(t, uint8(30), mat.GetUCharAt(1, 2*3+0))
	assert.Equal(t, uint8(20), mat.GetUCharAt(1, 2*3+1))
	assert.Equal(t, uint8(10), mat.GetUCharAt(1, 2*3+2))
}

func TestWheelGeometry_Validate(t *testing.T) {
	assert.NoError(t, WheelGeometry{Radius: 1}.Validate())
	assert.ErrorIs(t, WheelGeometry{Radius: 0}.Validate(), ErrInvalidGeometry)
	assert.ErrorIs(t, WheelGeometry{Radius: -3}.Validate(), ErrInvalidGeometry)
}
