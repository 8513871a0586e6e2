package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"hotdog-server-go/internal/platform/config"
	platformerrors "hotdog-server-go/internal/platform/errors"
	"hotdog-server-go/internal/utils"
)

// Validator performs layered checks against incoming image payloads.
type Validator struct {
	config *config.SecurityConfig
	logger *utils.Logger
}

// NewValidator constructs a new validator instance.
func NewValidator(
	config *config.SecurityConfig,
	logger *utils.Logger,
) *Validator {
	return &Validator{
		config: config,
		logger: logger,
	}
}

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"jpg":  {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
}

// ValidateBytes validates raw bytes against the size ceiling, format
// allow-list and a full decode-config pass.
func (v *Validator) ValidateBytes(raw []byte, declaredFormat string) ValidationResult {
	result := ValidationResult{IsValid: false}

	if len(raw) == 0 {
		result.Error = platformerrors.New(platformerrors.KindValidation, "validate", "empty image payload")
		return result
	}

	if int64(len(raw)) > v.config.MaxFileSize {
		result.Error = platformerrors.New(
			platformerrors.KindPayload,
			"validate",
			fmt.Sprintf("image file too large: %d bytes (max %d bytes)", len(raw), v.config.MaxFileSize),
		)
		v.logger.WarnTag("IMAGE",
			"oversized payload rejected: size=%d max_size=%d format=%s",
			len(raw), v.config.MaxFileSize, declaredFormat)
		return result
	}

	if declaredFormat != "" && !v.isFormatAllowed(declaredFormat) {
		result.Error = platformerrors.New(
			platformerrors.KindValidation,
			"validate",
			fmt.Sprintf("unsupported image format: %s (allowed: %s)",
				declaredFormat, strings.Join(v.allowedFormats(), ", ")),
		)
		return result
	}

	decodeResult := v.validateImageDecoding(raw, declaredFormat)
	if !decodeResult.IsValid {
		if declaredFormat != "" && !v.validateFileSignature(raw, declaredFormat) {
			actualHeader := fmt.Sprintf("%x", raw[:min(len(raw), 16)])
			v.logger.WarnTag("IMAGE",
				"file signature mismatch: declared_format=%s actual_header=%s",
				declaredFormat, actualHeader)
		}
		return decodeResult
	}

	result = decodeResult
	result.IsValid = true
	result.FileSize = int64(len(raw))
	return result
}

func (v *Validator) allowedFormats() []string {
	if v.config == nil || len(v.config.AllowedFormats) == 0 {
		return []string{"jpeg", "jpg", "png", "gif", "webp"}
	}
	return v.config.AllowedFormats
}

func (v *Validator) isFormatAllowed(format string) bool {
	if format == "" {
		return true
	}
	format = strings.ToLower(format)
	for _, allowed := range v.allowedFormats() {
		if strings.ToLower(allowed) == format {
			return true
		}
	}
	return false
}

func (v *Validator) validateFileSignature(raw []byte, format string) bool {
	signature, ok := imageSignatures[strings.ToLower(format)]
	if !ok || len(signature) == 0 {
		return true
	}
	if len(raw) < len(signature) {
		return false
	}
	return bytes.Equal(signature, raw[:len(signature)])
}

func (v *Validator) validateImageDecoding(raw []byte, format string) ValidationResult {
	result := ValidationResult{Format: format}
	reader := bytes.NewReader(raw)

	cfg, actualFormat, err := image.DecodeConfig(reader)
	if err != nil {
		result.Error = platformerrors.Wrap(
			platformerrors.KindValidation,
			"validate",
			"invalid image format or corrupted image file",
			err,
		)
		return result
	}

	if actualFormat != "" {
		result.Format = actualFormat
	}

	if !v.isFormatAllowed(result.Format) {
		result.Error = platformerrors.New(
			platformerrors.KindValidation,
			"validate",
			fmt.Sprintf("unsupported image format: %s (allowed: %s)",
				result.Format, strings.Join(v.allowedFormats(), ", ")),
		)
		return result
	}

	if cfg.Width > v.config.MaxWidth || cfg.Height > v.config.MaxHeight {
		result.Error = platformerrors.New(
			platformerrors.KindValidation,
			"validate",
			fmt.Sprintf("dimensions exceed limit: %dx%d (max %dx%d)",
				cfg.Width, cfg.Height, v.config.MaxWidth, v.config.MaxHeight),
		)
		return result
	}

	totalPixels := int64(cfg.Width) * int64(cfg.Height)
	if totalPixels > v.config.MaxPixels {
		result.Error = platformerrors.New(
			platformerrors.KindValidation,
			"validate",
			fmt.Sprintf("pixel count exceeds limit: %d (max %d)", totalPixels, v.config.MaxPixels),
		)
		return result
	}

	result.IsValid = true
	result.Width = cfg.Width
	result.Height = cfg.Height
	result.FileSize = int64(len(raw))

	v.logger.DebugTag("IMAGE",
		"validation success: format=%s width=%d height=%d size=%d",
		result.Format, result.Width, result.Height, result.FileSize)

	return result
}
