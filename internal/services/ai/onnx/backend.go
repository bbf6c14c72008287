// Package onnx runs detection models with ONNX Runtime.
package onnx

import (
	"fmt"
	"image"
	"webdetect/internal/services/ai"

	ort "github.com/yalue/onnxruntime_go"
)

// Backend holds an ONNX Runtime session bound to fixed input/output tensors.
type Backend struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputSize    int
}

// Opener returns an ai.OpenFunc using the ONNX Runtime shared library at
// libraryPath, or the library default when libraryPath is empty.
func Opener(libraryPath string, defaultInputSize int) ai.OpenFunc {
	return func(modelPath string) (ai.Backend, error) {
		backend, err := Open(modelPath, libraryPath, defaultInputSize)
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
}

// Open creates a session for modelPath. The model must have a single float
// image input [1, 3, H, W] with H == W and a fixed output shape.
func Open(modelPath, libraryPath string, defaultInputSize int) (*Backend, error) {
	if !ort.IsInitialized() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model inputs/outputs: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("expected 1 input and at least 1 output, got %d and %d", len(inputs), len(outputs))
	}

	inputSize, err := squareInputSize(inputs[0].Dimensions, defaultInputSize)
	if err != nil {
		return nil, err
	}

	outputDims := outputs[0].Dimensions
	for _, dim := range outputDims {
		if dim <= 0 {
			return nil, fmt.Errorf("dynamic output shape %v is not supported", outputDims)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputSize), int64(inputSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputDims...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Backend{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputSize:    inputSize,
	}, nil
}

// squareInputSize extracts the side of an NCHW image input, falling back to
// the default for dynamic dimensions.
func squareInputSize(dims ort.Shape, defaultInputSize int) (int, error) {
	if len(dims) != 4 || dims[1] != 3 {
		return 0, fmt.Errorf("unsupported input shape %v", dims)
	}
	height, width := int(dims[2]), int(dims[3])
	if height <= 0 || width <= 0 {
		return defaultInputSize, nil
	}
	if height != width {
		return 0, fmt.Errorf("non-square input %dx%d is not supported", width, height)
	}
	return height, nil
}

func (b *Backend) Name() string { return "onnxruntime" }

func (b *Backend) InputSize() int { return b.inputSize }

// Forward letterboxes img into the input tensor and runs the session.
func (b *Backend) Forward(img image.Image, frame ai.Frame) (ai.Output, error) {
	if frame.Size != b.inputSize {
		return ai.Output{}, fmt.Errorf("frame size %d does not match model input %d", frame.Size, b.inputSize)
	}

	copy(b.inputTensor.GetData(), ai.LetterboxImage(img, frame))

	if err := b.session.Run(); err != nil {
		return ai.Output{}, fmt.Errorf("inference failed: %w", err)
	}

	values := b.outputTensor.GetData()
	data := make([]float32, len(values))
	copy(data, values)

	dims := b.outputTensor.GetShape()
	shape := make([]int, len(dims))
	for i, dim := range dims {
		shape[i] = int(dim)
	}

	return ai.Output{Data: data, Shape: shape}, nil
}

// Close destroys the session, its tensors and the ONNX environment.
func (b *Backend) Close() error {
	if b.inputTensor != nil {
		b.inputTensor.Destroy()
	}
	if b.outputTensor != nil {
		b.outputTensor.Destroy()
	}
	if b.session != nil {
		b.session.Destroy()
	}
	return ort.DestroyEnvironment()
}
