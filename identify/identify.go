// Package identify reads a medicine package photo and resolves it against the catalogs.
package identify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/giygas/meditrust-api/logging"
	"github.com/giygas/meditrust-api/matching"
	"github.com/giygas/meditrust-api/metrics"
	"github.com/giygas/meditrust-api/ocr"
)

// ErrNotAFile is wrapped in an InputError when the image path is a directory
var ErrNotAFile = errors.New("not a regular file")

// Identification is the outcome of reading one image
type Identification struct {
	Result  matching.MatchResult
	RawText string // recognized lines joined by spaces
}

// Identifier chains the OCR engine and the resolver
type Identifier struct {
	engine   ocr.Engine
	resolver *matching.Resolver
}

// NewIdentifier creates an identifier
func NewIdentifier(engine ocr.Engine, resolver *matching.Resolver) *Identifier {
	return &Identifier{engine: engine, resolver: resolver}
}

// IdentifyImage recognizes the text on the image at path and resolves it.
// A missing or unreadable path is an InputError. An image without text is not
// an error: the result is in the NoMedicineFound state.
func (id *Identifier) IdentifyImage(ctx context.Context, path string) (*Identification, error) {
	identification, err := id.identify(ctx, path)
	if err != nil {
		metrics.ObserveResolution(metrics.OutcomeError)
		return nil, err
	}
	metrics.ObserveResolution(identification.Result.State.String())
	return identification, nil
}

func (id *Identifier) identify(ctx context.Context, path string) (*Identification, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &matching.InputError{Input: path, Err: err}
	}
	if info.IsDir() {
		return nil, &matching.InputError{Input: path, Err: ErrNotAFile}
	}

	lines, err := id.engine.Recognize(ctx, path)
	if errors.Is(err, ocr.ErrNoResults) {
		logging.Debug("OCR returned no text", "path", path)
		return &Identification{Result: matching.MatchResult{State: matching.NoMedicineFound}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ocr failed: %w", err)
	}

	texts := ocr.Texts(lines)
	tokens := matching.Tokenize(texts...)
	logging.Debug("Extracted words", "tokens", tokens)

	result, err := id.resolver.Resolve(ctx, tokens)
	if err != nil {
		return nil, err
	}

	return &Identification{
		Result:  result,
		RawText: strings.Join(texts, " "),
	}, nil
}
