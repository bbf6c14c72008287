// Package opencv runs detection models through the OpenCV DNN module.
package opencv

import (
	"fmt"
	"image"
	"image/color"
	"webdetect/internal/services/ai"

	"gocv.io/x/gocv"
)

// Backend wraps a gocv network loaded from an ONNX file.
type Backend struct {
	net gocv.Net
}

// Open loads an ONNX model and prepares it for CPU inference.
func Open(modelPath string) (ai.Backend, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	return &Backend{net: net}, nil
}

func (b *Backend) Name() string { return "opencv" }

// InputSize is not exposed by the OpenCV importer; the configured size is used.
func (b *Backend) InputSize() int { return 0 }

// Forward letterboxes img into the frame and runs the network.
func (b *Backend) Forward(img image.Image, frame ai.Frame) (ai.Output, error) {
	// ImageToMatRGB stores pixels in OpenCV's BGR order.
	src, err := gocv.ImageToMatRGB(ai.OpaqueImage(img))
	if err != nil {
		return ai.Output{}, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	if src.Empty() {
		return ai.Output{}, fmt.Errorf("converted image is empty")
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(frame.NewWidth, frame.NewHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMat()
	defer padded.Close()
	pad := color.RGBA{R: ai.PadValue, G: ai.PadValue, B: ai.PadValue, A: 0}
	gocv.CopyMakeBorder(resized, &padded, frame.PadTop, frame.PadBottom, frame.PadLeft, frame.PadRight, gocv.BorderConstant, pad)

	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(frame.Size, frame.Size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	b.net.SetInput(blob, "")

	output := b.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return ai.Output{}, fmt.Errorf("network returned an empty output")
	}

	values, err := output.DataPtrFloat32()
	if err != nil {
		return ai.Output{}, fmt.Errorf("failed to read output: %w", err)
	}

	// The slice aliases the Mat's memory, copy it before Close.
	data := make([]float32, len(values))
	copy(data, values)

	return ai.Output{Data: data, Shape: output.Size()}, nil
}

// Close releases the network.
func (b *Backend) Close() error {
	return b.net.Close()
}
