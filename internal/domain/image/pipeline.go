package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"hotdog-server-go/internal/platform/config"
	platformerrors "hotdog-server-go/internal/platform/errors"
	"hotdog-server-go/internal/utils"
)

// Pipeline orchestrates streaming ingestion, validation, and base64 encoding
// of image payloads.
type Pipeline struct {
	validator *Validator
	logger    *utils.Logger
	security  *config.SecurityConfig
}

// Options configures the pipeline behaviour.
type Options struct {
	Security *config.SecurityConfig
	Logger   *utils.Logger
}

// Input describes a streaming image payload.
type Input struct {
	Reader         io.Reader
	DeclaredFormat string
	Source         SourceKind
}

// NewPipeline constructs a streaming image pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Security == nil {
		return nil, fmt.Errorf("security config is required")
	}
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}

	return &Pipeline{
		validator: NewValidator(opts.Security, opts.Logger),
		logger:    opts.Logger,
		security:  opts.Security,
	}, nil
}

// Process streams the input through the size bound, validation and base64
// encoding. The returned Validated buffer is owned by the caller.
func (p *Pipeline) Process(ctx context.Context, input Input) (*Validated, error) {
	if input.Reader == nil {
		return nil, platformerrors.New(platformerrors.KindValidation, "pipeline", "image reader is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxSize := p.security.MaxFileSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}

	limited := &io.LimitedReader{
		R: input.Reader,
		N: maxSize + 1,
	}

	rawBuf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	base64Buf := bytes.NewBuffer(make([]byte, 0, 64*1024))

	encoder := base64.NewEncoder(base64.StdEncoding, base64Buf)
	writer := io.MultiWriter(rawBuf, encoder)

	if _, err := io.Copy(writer, limited); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindValidation, "pipeline", "stream image bytes", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindValidation, "pipeline", "finalise base64 encoding", err)
	}

	if limited.N <= 0 {
		return nil, platformerrors.New(
			platformerrors.KindPayload,
			"pipeline",
			fmt.Sprintf("image exceeds maximum size of %d bytes (received at least %d)", maxSize, rawBuf.Len()),
		)
	}

	rawBytes := rawBuf.Bytes()
	validation := p.validator.ValidateBytes(rawBytes, input.DeclaredFormat)
	if !validation.IsValid {
		if validation.Error != nil {
			return nil, validation.Error
		}
		return nil, platformerrors.New(platformerrors.KindValidation, "pipeline", "image validation failed")
	}

	owned := make([]byte, len(rawBytes))
	copy(owned, rawBytes)

	return &Validated{
		Bytes:  owned,
		Base64: base64Buf.String(),
		Format: validation.Format,
		Width:  validation.Width,
		Height: validation.Height,
		Size:   validation.FileSize,
	}, nil
}
