package lbph

import (
	"image"
	"math/rand"
	"testing"

	"github.com/rpggio/rollcall/internal/vision"
	"github.com/stretchr/testify/require"
)

func noise(seed int64, size int) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

func TestUniformTable(t *testing.T) {
	seen := map[uint8]int{}
	for _, v := range uniform {
		seen[v]++
	}
	require.Len(t, seen, bins)
	require.Equal(t, 256-58, seen[bins-1])
}

func TestTrainPredict(t *testing.T) {
	rec := New(DefaultOptions())
	a := noise(1, 120)
	b := noise(2, 120)

	model, err := rec.Train([]vision.Sample{{Label: 1, Image: a}, {Label: 2, Image: b}})
	require.NoError(t, err)

	label, dist, err := rec.Predict(a, model)
	require.NoError(t, err)
	require.Equal(t, int64(1), label)
	require.InDelta(t, 0, dist, 1e-9)

	label, dist, err = rec.Predict(b, model)
	require.NoError(t, err)
	require.Equal(t, int64(2), label)
	require.InDelta(t, 0, dist, 1e-9)

	_, dist, err = rec.Predict(noise(3, 120), model)
	require.NoError(t, err)
	require.Greater(t, dist, 0.0)
}

func TestTrainEmpty(t *testing.T) {
	_, err := New(Options{}).Train(nil)
	require.ErrorIs(t, err, vision.ErrNoSamples)
}

func TestPredictRejectsForeignModel(t *testing.T) {
	_, _, err := New(Options{}).Predict(noise(1, 50), foreignModel{})
	require.ErrorIs(t, err, ErrModelType)

	_, _, err = New(Options{}).Predict(noise(1, 50), &Model{})
	require.ErrorIs(t, err, ErrEmptyModel)
}

func TestModelRoundTrip(t *testing.T) {
	rec := New(Options{Size: 40, GridX: 4, GridY: 4})
	face := noise(5, 64)
	model, err := rec.Train([]vision.Sample{{Label: 9, Image: face}})
	require.NoError(t, err)

	data, err := model.MarshalBinary()
	require.NoError(t, err)

	restored, err := rec.UnmarshalModel(data)
	require.NoError(t, err)
	require.Equal(t, model, restored)

	label, dist, err := rec.Predict(face, restored)
	require.NoError(t, err)
	require.Equal(t, int64(9), label)
	require.InDelta(t, 0, dist, 1e-9)

	_, err = rec.UnmarshalModel([]byte("not gob"))
	require.Error(t, err)
}

type foreignModel struct{}

func (foreignModel) MarshalBinary() ([]byte, error) { return nil, nil }
