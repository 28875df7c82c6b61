package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// InputKind identifies which adapter a request is meant for
type InputKind string

const (
	InputKindText  InputKind = "text"
	InputKindImage InputKind = "image"
)

// LabelScore is one ranked classification result
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (ls LabelScore) String() string {
	return fmt.Sprintf("{label: %s, score: %.4f}", ls.Label, ls.Score)
}

// Prediction is an ordered sequence of label/score pairs
type Prediction []LabelScore

// Top returns the highest scoring entry, or false when empty
func (p Prediction) Top() (LabelScore, bool) {
	if len(p) == 0 {
		return LabelScore{}, false
	}
	best := p[0]
	for _, ls := range p[1:] {
		if ls.Score > best.Score {
			best = ls
		}
	}
	return best, true
}

func (p Prediction) String() string {
	parts := make([]string, len(p))
	for i, ls := range p {
		parts[i] = ls.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// PredictionRequest carries either text or an image reference.
// An image is given by path or by its raw bytes; bytes win when both are set.
type PredictionRequest struct {
	Text      string
	ImagePath string
	Image     []byte
}

// NewTextRequest creates a text prediction request
func NewTextRequest(text string) *PredictionRequest {
	return &PredictionRequest{Text: text}
}

// NewImagePathRequest creates an image prediction request from a file path
func NewImagePathRequest(path string) *PredictionRequest {
	return &PredictionRequest{ImagePath: path}
}

// NewImageBytesRequest creates an image prediction request from raw content
func NewImageBytesRequest(image []byte) *PredictionRequest {
	return &PredictionRequest{Image: image}
}

// Kind reports whether the request targets the text or the image adapter
func (r *PredictionRequest) Kind() InputKind {
	if len(r.Image) > 0 || r.ImagePath != "" {
		return InputKindImage
	}
	return InputKindText
}

// Digest returns a stable content digest, or "" when the content is only
// reachable through a path.
func (r *PredictionRequest) Digest() string {
	var sum [sha256.Size]byte
	switch {
	case len(r.Image) > 0:
		sum = sha256.Sum256(r.Image)
	case r.ImagePath != "":
		return ""
	default:
		sum = sha256.Sum256([]byte(r.Text))
	}
	return hex.EncodeToString(sum[:])
}
