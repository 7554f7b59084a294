// Package retinaface runs the RetinaFace det_10g detector through ONNX Runtime.
package retinaface

import (
	"fmt"
	"image"
	"math"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	"github.com/rpggio/rollcall/internal/vision"
)

const (
	inputW = 640
	inputH = 640

	anchorsPerStride = 2
	nmsThreshold     = 0.4
)

var strides = []int{8, 16, 32}

// Init loads the ONNX Runtime shared library. Call once before New and pair
// with Shutdown.
func Init(libPath string) error {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnx runtime: %w", err)
	}
	return nil
}

// Shutdown releases the ONNX Runtime environment.
func Shutdown() error {
	return ort.DestroyEnvironment()
}

// Detector implements vision.Detector. A session is not safe for
// concurrent runs, so Detect serialises callers.
type Detector struct {
	mu            sync.Mutex
	session       *ort.AdvancedSession
	inputTensor   *ort.Tensor[float32]
	outputTensors []*ort.Tensor[float32]
	threshold     float32
	minSize       int
}

// New loads the model at modelPath. Detections below threshold or with a
// side shorter than minSize pixels are dropped.
func New(modelPath string, threshold float32, minSize int) (*Detector, error) {
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, inputH, inputW))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// Output order is scores, bboxes, landmarks, each at strides 8, 16, 32.
	outputs := []struct {
		name  string
		shape ort.Shape
	}{
		{"448", ort.NewShape(12800, 1)},
		{"471", ort.NewShape(3200, 1)},
		{"494", ort.NewShape(800, 1)},
		{"451", ort.NewShape(12800, 4)},
		{"474", ort.NewShape(3200, 4)},
		{"497", ort.NewShape(800, 4)},
		{"454", ort.NewShape(12800, 10)},
		{"477", ort.NewShape(3200, 10)},
		{"500", ort.NewShape(800, 10)},
	}

	names := make([]string, len(outputs))
	tensors := make([]*ort.Tensor[float32], len(outputs))
	values := make([]ort.Value, len(outputs))
	destroy := func() {
		inputTensor.Destroy()
		for _, t := range tensors {
			if t != nil {
				t.Destroy()
			}
		}
	}

	for i, out := range outputs {
		t, err := ort.NewEmptyTensor[float32](out.shape)
		if err != nil {
			destroy()
			return nil, fmt.Errorf("create output tensor %s: %w", out.name, err)
		}
		names[i] = out.name
		tensors[i] = t
		values[i] = t
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"},
		names,
		[]ort.Value{inputTensor},
		values,
		nil,
	)
	if err != nil {
		destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &Detector{
		session:       session,
		inputTensor:   inputTensor,
		outputTensors: tensors,
		threshold:     threshold,
		minSize:       minSize,
	}, nil
}

// Detect finds faces in img and returns them in img's coordinates.
func (d *Detector) Detect(img image.Image) ([]vision.Region, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	preprocess(img, d.inputTensor.GetData())
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	boxes := nms(d.decode(b.Dx(), b.Dy()), nmsThreshold)

	regions := make([]vision.Region, 0, len(boxes))
	for _, det := range boxes {
		r := image.Rect(
			int(det.box[0]), int(det.box[1]),
			int(math.Ceil(float64(det.box[2]))), int(math.Ceil(float64(det.box[3]))),
		).Add(b.Min)
		if r.Dx() < d.minSize || r.Dy() < d.minSize {
			continue
		}
		regions = append(regions, vision.Region{Rect: r, Confidence: det.score})
	}
	return regions, nil
}

// Close releases the session and its tensors.
func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	for _, t := range d.outputTensors {
		if t != nil {
			t.Destroy()
		}
	}
}

type detection struct {
	box   [4]float32
	score float32
}

// decode turns anchor outputs into boxes scaled to an origW x origH frame.
func (d *Detector) decode(origW, origH int) []detection {
	var out []detection
	scaleW := float32(origW) / inputW
	scaleH := float32(origH) / inputH

	for si, stride := range strides {
		scores := d.outputTensors[si].GetData()
		bboxes := d.outputTensors[si+3].GetData()

		st := float32(stride)
		idx := 0
		for cy := 0; cy < inputH/stride; cy++ {
			for cx := 0; cx < inputW/stride; cx++ {
				for a := 0; a < anchorsPerStride; a++ {
					if scores[idx] >= d.threshold {
						ax := float32(cx) * st
						ay := float32(cy) * st
						out = append(out, detection{
							box: [4]float32{
								clamp((ax-bboxes[idx*4+0]*st)*scaleW, 0, float32(origW)),
								clamp((ay-bboxes[idx*4+1]*st)*scaleH, 0, float32(origH)),
								clamp((ax+bboxes[idx*4+2]*st)*scaleW, 0, float32(origW)),
								clamp((ay+bboxes[idx*4+3]*st)*scaleH, 0, float32(origH)),
							},
							score: scores[idx],
						})
					}
					idx++
				}
			}
		}
	}
	return out
}

// preprocess scales img to the network input and writes it CHW into dst,
// normalised as (pixel - 127.5) / 128.
func preprocess(img image.Image, dst []float32) {
	rgba := image.NewRGBA(image.Rect(0, 0, inputW, inputH))
	draw.ApproxBiLinear.Scale(rgba, rgba.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := inputW * inputH
	for y := 0; y < inputH; y++ {
		for x := 0; x < inputW; x++ {
			i := rgba.PixOffset(x, y)
			idx := y*inputW + x
			dst[idx] = (float32(rgba.Pix[i]) - 127.5) / 128
			dst[plane+idx] = (float32(rgba.Pix[i+1]) - 127.5) / 128
			dst[2*plane+idx] = (float32(rgba.Pix[i+2]) - 127.5) / 128
		}
	}
}

func nms(dets []detection, threshold float32) []detection {
	if len(dets) == 0 {
		return dets
	}
	sort.Slice(dets, func(i, j int) bool {
		return dets[i].score > dets[j].score
	})

	keep := make([]bool, len(dets))
	for i := range keep {
		keep[i] = true
	}
	for i := range dets {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(dets); j++ {
			if keep[j] && iou(dets[i].box, dets[j].box) > threshold {
				keep[j] = false
			}
		}
	}

	var out []detection
	for i, det := range dets {
		if keep[i] {
			out = append(out, det)
		}
	}
	return out
}

func iou(a, b [4]float32) float32 {
	x1 := max(a[0], b[0])
	y1 := max(a[1], b[1])
	x2 := min(a[2], b[2])
	y2 := min(a[3], b[3])

	inter := max(0, x2-x1) * max(0, y2-y1)
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
