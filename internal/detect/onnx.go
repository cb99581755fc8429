package detect

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// DefaultInputSize is the square model input edge used by the tumor
	// detection checkpoints this service ships with.
	DefaultInputSize = 640

	// DefaultIoUThreshold is the overlap cutoff for non-max suppression.
	DefaultIoUThreshold = 0.7
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime initializes the shared ONNX Runtime environment once per
// process. libPath may be empty when the library is on the default search
// path.
func initRuntime(libPath string) error {
	ortInitOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXConfig describes how to open an ONNX detection model.
type ONNXConfig struct {
	// ModelPath is the path to the .onnx checkpoint.
	ModelPath string

	// LibraryPath optionally points at the onnxruntime shared library.
	LibraryPath string

	// Labels is the model's class id -> category name table.
	Labels LabelTable

	// InputSize is the square input edge; 0 means DefaultInputSize.
	InputSize int

	// IoUThreshold is the NMS cutoff; 0 means DefaultIoUThreshold.
	IoUThreshold float64

	Log *logrus.Logger
}

// ONNXDetector runs a YOLO-style detection model through ONNX Runtime.
//
// The session owns fixed input/output tensors, so Detect serializes model
// runs with a mutex. Images are processed one at a time per detector;
// callers wanting cross-image parallelism open one detector per worker.
type ONNXDetector struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	labels    LabelTable
	inputSize int
	iou       float64
	log       *logrus.Logger
}

// NewONNXDetector opens the model and allocates its session tensors.
// The returned detector must be released with Close.
func NewONNXDetector(cfg ONNXConfig) (*ONNXDetector, error) {
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("%w: empty label table", ErrInvalidConfiguration)
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = DefaultInputSize
	}
	if cfg.IoUThreshold <= 0 {
		cfg.IoUThreshold = DefaultIoUThreshold
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	n := cfg.InputSize
	inputShape := ort.NewShape(1, 3, int64(n), int64(n))
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, 3*n*n))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	// YOLO single-scale head: 4 box rows plus one score row per class.
	outputShape := ort.NewShape(1, int64(len(cfg.Labels)+4), 8400)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to open model %s: %w", cfg.ModelPath, err)
	}

	return &ONNXDetector{
		session:   session,
		input:     inputTensor,
		output:    outputTensor,
		labels:    cfg.Labels,
		inputSize: cfg.InputSize,
		iou:       cfg.IoUThreshold,
		log:       cfg.Log,
	}, nil
}

// Names returns the model's label table.
func (d *ONNXDetector) Names() LabelTable { return d.labels }

// Detect implements Detector.
func (d *ONNXDetector) Detect(ctx context.Context, img image.Image, threshold float64) ([]Detection, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	imgW, imgH := bounds.Dx(), bounds.Dy()

	d.mu.Lock()
	defer d.mu.Unlock()

	prepareInput(img, d.input.GetData(), d.inputSize)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	raw, err := DecodeOutput(d.output.GetData(), len(d.labels), d.inputSize, imgW, imgH, threshold)
	if err != nil {
		return nil, err
	}
	dets := NonMaxSuppression(raw, d.iou)

	d.log.WithFields(logrus.Fields{
		"detections": len(dets),
		"threshold":  threshold,
	}).Debug("model run complete")

	return dets, nil
}

// Close releases the session and its tensors.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
	return nil
}

// prepareInput resizes img to a size x size square and writes normalized
// CHW float data into dst, which must hold 3*size*size values.
func prepareInput(img image.Image, dst []float32, size int) {
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	stride := size * size
	min := resized.Bounds().Min

	idx := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(min.X+x, min.Y+y).RGBA()
			dst[idx] = float32(r>>8) / 255.0
			dst[idx+stride] = float32(g>>8) / 255.0
			dst[idx+2*stride] = float32(b>>8) / 255.0
			idx++
		}
	}
}
