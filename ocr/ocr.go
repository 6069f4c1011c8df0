// Package ocr defines the text recognition contract used to read medicine packaging.
package ocr

import (
	"context"
	"errors"
	"image"
)

// ErrNoResults is returned when an engine finds no text in the image
var ErrNoResults = errors.New("ocr did not return any results")

// Line is one recognized text line
type Line struct {
	Text       string
	Confidence float64 // 0..1
	Bounds     image.Rectangle
}

// Engine recognizes text lines in an image file.
// Implementations return ErrNoResults rather than an empty slice.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) ([]Line, error)
}

// Texts returns the text of each line, in reading order
func Texts(lines []Line) []string {
	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		texts = append(texts, l.Text)
	}
	return texts
}
