package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// CropGray cuts r out of img and converts it to grayscale. The rectangle is
// clipped to the image bounds; an empty intersection yields nil.
func CropGray(img image.Image, r image.Rectangle) *image.Gray {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil
	}
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// Resize scales a grayscale image to w x h.
func Resize(src *image.Gray, w, h int) *image.Gray {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Gray converts any image to grayscale at its own size.
func Gray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	return CropGray(img, img.Bounds())
}

// FullFrame treats the whole frame as one face. It serves sources that
// already deliver cropped faces and runs where no detector model is installed.
type FullFrame struct {
	MinSize int
}

// Detect returns the frame bounds when both sides reach MinSize.
func (d FullFrame) Detect(img image.Image) ([]Region, error) {
	b := img.Bounds()
	if b.Dx() < d.MinSize || b.Dy() < d.MinSize || b.Empty() {
		return nil, nil
	}
	return []Region{{Rect: b, Confidence: 1}}, nil
}
