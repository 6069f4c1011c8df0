// Package validation provides input, upload and catalog data quality checks for the meditrust API.
package validation

import (
	"errors"
	"fmt"
	"image"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	// Image formats accepted for scans
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/giygas/meditrust-api/entities"
	"github.com/giygas/meditrust-api/interfaces"
	"github.com/giygas/meditrust-api/logging"
)

// Limits for user search strings. Salt compositions are the longest accepted inputs.
// Only words starting with a letter count toward maxInputWords, so the doses and
// "+" separators of multi-ingredient salts do not.
const (
	minInputLength = 3
	maxInputLength = 200
	maxInputWords  = 12

	// Reports keep at most this many example names per issue
	maxReportedNames = 10

	// Scans larger than this in either dimension are rejected before OCR
	maxImageDimension = 10000
)

// Pre-compiled regex patterns for performance optimization
// Compiled once at package initialization and reused for all validations
var (
	// Input validation: alphanumeric + the punctuation found in salt compositions
	inputRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.\+'(),%/]+$`)

	// Dangerous patterns as strings (faster than regex for simple substring matching)
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
		"eval(", "expression(", "url(", "import ", "@import", "binding(", "behavior(",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:",
	}
)

// ErrUnsupportedImage is returned when an upload is not a decodable image
var ErrUnsupportedImage = errors.New("unsupported image format")

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct {
	maxImageSize int64
}

// NewDataValidator creates a new data validator. A maxImageSize of 0 disables the size check.
func NewDataValidator(maxImageSize int64) interfaces.DataValidator {
	return &DataValidatorImpl{maxImageSize: maxImageSize}
}

// ValidateInput validates user search strings with enhanced security
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) < minInputLength {
		return fmt.Errorf("input too short: minimum %d characters", minInputLength)
	}

	if len(input) > maxInputLength {
		return fmt.Errorf("input too long: maximum %d characters", maxInputLength)
	}

	// Word count validation to prevent DoS attacks with many short words
	if countWords(input) > maxInputWords {
		return fmt.Errorf("search query too complex: maximum %d words allowed", maxInputWords)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces and - . + ' ( ) , %% / are allowed")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateImage checks that path is a regular file holding a decodable image within limits.
// Only the image header is read.
func (v *DataValidatorImpl) ValidateImage(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access image: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("image path is not a regular file")
	}
	if info.Size() == 0 {
		return fmt.Errorf("image is empty")
	}
	if v.maxImageSize > 0 && info.Size() > v.maxImageSize {
		return fmt.Errorf("image too large: %d bytes, maximum %d", info.Size(), v.maxImageSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open image: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("Failed to close image", "path", path, "error", err)
		}
	}()

	cfg, format, err := image.DecodeConfig(file)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width > maxImageDimension || cfg.Height > maxImageDimension {
		return fmt.Errorf("image dimensions too large: %dx%d", cfg.Width, cfg.Height)
	}

	logging.Debug("Image accepted", "format", format, "width", cfg.Width, "height", cfg.Height)
	return nil
}

// ReportDataQuality generates a data quality report with all issues found
func (v *DataValidatorImpl) ReportDataQuality(
	medicines []entities.CatalogRecord,
	generics []entities.GenericRecord,
	unparsablePrices int,
) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		MedicinesWithoutSaltNames: []string{},
		DuplicateMedicineNames:    []string{},
		UnparsablePrices:          unparsablePrices,
	}

	// Check 1: medicines without salt composition can never lead to a generic
	for _, med := range medicines {
		if strings.TrimSpace(med.SaltComposition) == "" {
			report.MedicinesWithoutSalt++
			if len(report.MedicinesWithoutSaltNames) < maxReportedNames {
				report.MedicinesWithoutSaltNames = append(report.MedicinesWithoutSaltNames, med.Name)
			}
		}
	}

	// Check 2: duplicate names, only the first record is ever matched
	seen := make(map[string]int)
	for _, med := range medicines {
		key := strings.ToLower(strings.TrimSpace(med.Name))
		if key == "" {
			continue
		}
		seen[key]++
		if seen[key] == 2 {
			report.DuplicateMedicineNames = append(report.DuplicateMedicineNames, med.Name)
		}
	}

	// Check 3: generics without a name are skipped by the matcher
	for _, gen := range generics {
		if strings.TrimSpace(gen.GenericName) == "" {
			report.GenericsWithoutName++
		}
	}

	return report
}

// countWords counts the whitespace separated words that start with a letter
func countWords(input string) int {
	n := 0
	for _, field := range strings.Fields(input) {
		if r, _ := utf8.DecodeRuneInString(field); unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// hasExcessiveRepetition checks for potential DoS patterns with excessive character repetition
func hasExcessiveRepetition(input string) bool {
	// Check for the same character repeated more than 10 times consecutively
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
