// Package tesseract implements ocr.Engine with the Tesseract library through gosseract.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/giygas/meditrust-api/logging"
	"github.com/giygas/meditrust-api/ocr"
	"github.com/otiai10/gosseract/v2"
)

// Compile-time check to ensure Engine implements ocr.Engine
var _ ocr.Engine = (*Engine)(nil)

// Engine recognizes text lines with a fresh gosseract client per image
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewEngine creates an engine for the given Tesseract languages, e.g. "eng"
func NewEngine(languages ...string) *Engine {
	return &Engine{
		languages:     append([]string(nil), languages...),
		clientFactory: gosseract.NewClient,
	}
}

// Recognize returns the text lines found in the image, top to bottom
func (e *Engine) Recognize(ctx context.Context, imagePath string) ([]ocr.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text lines: %w", err)
	}

	lines := linesFromBoxes(boxes)
	if len(lines) == 0 {
		return nil, ocr.ErrNoResults
	}

	logging.Debug("OCR lines extracted", "path", imagePath, "lines", ocr.Texts(lines))
	return lines, nil
}

func linesFromBoxes(boxes []gosseract.BoundingBox) []ocr.Line {
	lines := make([]ocr.Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, ocr.Line{
			Text:       text,
			Confidence: b.Confidence / 100.0,
			Bounds:     b.Box,
		})
	}
	return lines
}
