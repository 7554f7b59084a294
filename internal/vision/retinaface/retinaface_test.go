package retinaface

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIOU(t *testing.T) {
	a := [4]float32{0, 0, 10, 10}
	require.InDelta(t, 1.0, iou(a, a), 1e-6)
	require.InDelta(t, 0.0, iou(a, [4]float32{20, 20, 30, 30}), 1e-6)
	require.InDelta(t, 25.0/175.0, iou(a, [4]float32{5, 5, 15, 15}), 1e-6)
}

func TestNMS(t *testing.T) {
	dets := []detection{
		{box: [4]float32{0, 0, 10, 10}, score: 0.6},
		{box: [4]float32{1, 1, 11, 11}, score: 0.9},
		{box: [4]float32{50, 50, 60, 60}, score: 0.7},
	}
	kept := nms(dets, nmsThreshold)
	require.Len(t, kept, 2)
	require.Equal(t, float32(0.9), kept[0].score)
	require.Equal(t, float32(0.7), kept[1].score)

	require.Empty(t, nms(nil, nmsThreshold))
}

func TestPreprocessNormalises(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 128, A: 255})
		}
	}
	dst := make([]float32, 3*inputW*inputH)
	preprocess(img, dst)

	plane := inputW * inputH
	require.InDelta(t, (255-127.5)/128, dst[0], 1e-3)
	require.InDelta(t, -127.5/128, dst[plane], 1e-3)
	require.InDelta(t, 0.5/128, dst[2*plane], 1e-3)
}
