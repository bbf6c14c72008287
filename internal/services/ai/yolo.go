package ai

import (
	"fmt"
	"sort"
	"webdetect/internal/models"
)

// maxCandidates caps the boxes fed into NMS.
const maxCandidates = 30000

// candidate is a box in model input space.
type candidate struct {
	x1, y1, x2, y2 float64
	score          float64
	class          int
	anchor         int
}

// DecodeYOLOv8 turns a YOLOv8 detection head output into detections in source
// image pixels. The tensor is [1, 4+classes, anchors] (or the transposed
// [1, anchors, 4+classes]) where each anchor holds cx, cy, w, h followed by
// one score per class.
func DecodeYOLOv8(output Output, frame Frame, opts Options) ([]models.Detection, error) {
	channels, anchors, channelsFirst, err := yoloLayout(output, len(opts.Labels))
	if err != nil {
		return nil, err
	}

	at := func(c, a int) float64 {
		if channelsFirst {
			return float64(output.Data[c*anchors+a])
		}
		return float64(output.Data[a*channels+c])
	}

	numClasses := channels - 4
	var candidates []candidate
	for a := 0; a < anchors; a++ {
		bestClass := 0
		bestScore := at(4, a)
		for c := 1; c < numClasses; c++ {
			if score := at(4+c, a); score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestScore <= opts.ConfidenceThreshold {
			continue
		}

		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		candidates = append(candidates, candidate{
			x1:     cx - w/2,
			y1:     cy - h/2,
			x2:     cx + w/2,
			y2:     cy + h/2,
			score:  bestScore,
			class:  bestClass,
			anchor: a,
		})
	}

	kept := nonMaxSuppression(candidates, opts.IoUThreshold, opts.MaxDetections)

	detections := make([]models.Detection, 0, len(kept))
	for _, c := range kept {
		minX, minY := frame.ToSource(c.x1, c.y1)
		maxX, maxY := frame.ToSource(c.x2, c.y2)
		detections = append(detections, models.NewDetection(minX, minY, maxX, maxY, labelFor(opts.Labels, c.class), c.score))
	}
	return detections, nil
}

// yoloLayout validates the output shape and reports its orientation. The axis
// of size 4+numLabels holds the channels; otherwise the larger axis is taken
// as the anchors.
func yoloLayout(output Output, numLabels int) (channels, anchors int, channelsFirst bool, err error) {
	shape := output.Shape
	if len(shape) == 3 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != 2 {
		return 0, 0, false, fmt.Errorf("unexpected output shape %v", output.Shape)
	}

	want := 4 + numLabels
	switch {
	case shape[0] == want && shape[1] != want:
		channelsFirst = true
	case shape[1] == want && shape[0] != want:
		channelsFirst = false
	default:
		channelsFirst = shape[0] <= shape[1]
	}

	if channelsFirst {
		channels, anchors = shape[0], shape[1]
	} else {
		channels, anchors = shape[1], shape[0]
	}

	if channels < 5 {
		return 0, 0, false, fmt.Errorf("output shape %v has no class scores", output.Shape)
	}
	if len(output.Data) != channels*anchors {
		return 0, 0, false, fmt.Errorf("output has %d values, shape %v needs %d", len(output.Data), output.Shape, channels*anchors)
	}
	return channels, anchors, channelsFirst, nil
}

// nonMaxSuppression keeps the highest scoring box of every overlapping group
// of the same class.
func nonMaxSuppression(candidates []candidate, iouThreshold float64, maxDetections int) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].anchor < candidates[j].anchor
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	var kept []candidate
	for _, c := range candidates {
		if maxDetections > 0 && len(kept) >= maxDetections {
			break
		}
		suppressed := false
		for _, k := range kept {
			if k.class == c.class && iou(k, c) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b candidate) float64 {
	ix1 := max(a.x1, b.x1)
	iy1 := max(a.y1, b.y1)
	ix2 := min(a.x2, b.x2)
	iy2 := min(a.y2, b.y2)

	iw := max(0, ix2-ix1)
	ih := max(0, iy2-iy1)
	inter := iw * ih

	union := (a.x2-a.x1)*(a.y2-a.y1) + (b.x2-b.x1)*(b.y2-b.y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func labelFor(labels []string, class int) string {
	if class >= 0 && class < len(labels) {
		return labels[class]
	}
	return fmt.Sprintf("class_%d", class)
}
