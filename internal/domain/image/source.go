package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	platformerrors "hotdog-server-go/internal/platform/errors"
	"hotdog-server-go/internal/utils"
)

// Source is the tagged union of the three accepted input shapes. Exactly one
// of the payload fields is set, according to Kind.
type Source struct {
	Kind     SourceKind
	Reader   io.Reader // SourceFile
	Filename string    // SourceFile
	URL      string    // SourceURL
	Base64   string    // SourceBase64
}

// FromUpload builds a Source for a multipart file upload.
func FromUpload(r io.Reader, filename string) Source {
	return Source{Kind: SourceFile, Reader: r, Filename: filename}
}

// FromURL builds a Source for a remote image URL.
func FromURL(rawURL string) Source {
	return Source{Kind: SourceURL, URL: strings.TrimSpace(rawURL)}
}

// FromBase64 builds a Source for an inline data URI payload.
func FromBase64(data string) Source {
	return Source{Kind: SourceBase64, Base64: data}
}

// Normalizer resolves any Source into a validated, size-bounded image buffer.
type Normalizer struct {
	pipeline *Pipeline
	fetcher  *Fetcher
	logger   *utils.Logger
}

// NewNormalizer wires the pipeline and fetcher together.
func NewNormalizer(pipeline *Pipeline, fetcher *Fetcher, logger *utils.Logger) *Normalizer {
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Normalizer{
		pipeline: pipeline,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// Resolve turns a Source into a Validated image or a classified error. No
// network call happens for upload and base64 inputs.
func (n *Normalizer) Resolve(ctx context.Context, src Source) (*Validated, error) {
	switch src.Kind {
	case SourceFile:
		return n.resolveUpload(ctx, src)
	case SourceURL:
		return n.resolveURL(ctx, src)
	case SourceBase64:
		return n.resolveBase64(ctx, src)
	default:
		return nil, platformerrors.New(platformerrors.KindValidation, "normalize",
			fmt.Sprintf("unknown image source kind: %s", src.Kind))
	}
}

func (n *Normalizer) resolveUpload(ctx context.Context, src Source) (*Validated, error) {
	if src.Filename == "" {
		return nil, platformerrors.New(platformerrors.KindValidation, "normalize", "no file selected")
	}

	format, ok := formatFromFilename(src.Filename)
	if !ok {
		return nil, platformerrors.New(
			platformerrors.KindValidation,
			"normalize",
			fmt.Sprintf("invalid file type: %s (allowed types: jpg, jpeg, png, gif, webp)",
				filepath.Ext(src.Filename)),
		)
	}

	return n.pipeline.Process(ctx, Input{
		Reader:         src.Reader,
		DeclaredFormat: format,
		Source:         SourceFile,
	})
}

func (n *Normalizer) resolveURL(ctx context.Context, src Source) (*Validated, error) {
	body, formatHint, err := n.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return n.pipeline.Process(ctx, Input{
		Reader:         body,
		DeclaredFormat: formatHint,
		Source:         SourceURL,
	})
}

func (n *Normalizer) resolveBase64(ctx context.Context, src Source) (*Validated, error) {
	format, payload, err := ParseDataURI(src.Base64)
	if err != nil {
		return nil, err
	}

	decoder := base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload))
	validated, err := n.pipeline.Process(ctx, Input{
		Reader:         decoder,
		DeclaredFormat: format,
		Source:         SourceBase64,
	})
	if err != nil {
		if platformerrors.IsKind(err, platformerrors.KindPayload) {
			return nil, err
		}
		if platformerrors.IsKind(err, platformerrors.KindValidation) {
			return nil, err
		}
		return nil, platformerrors.Wrap(platformerrors.KindValidation, "normalize",
			"invalid base64 image data", err)
	}
	return validated, nil
}

// ParseDataURI splits a data:image/...;base64,... string into its declared
// format and the raw base64 payload.
func ParseDataURI(data string) (format, payload string, err error) {
	if !strings.HasPrefix(data, "data:image/") {
		return "", "", platformerrors.New(platformerrors.KindValidation, "normalize", "invalid base64 image data")
	}

	comma := strings.Index(data, ",")
	if comma < 0 {
		return "", "", platformerrors.New(platformerrors.KindValidation, "normalize", "invalid base64 image data")
	}

	header := data[:comma]
	payload = data[comma+1:]

	if !strings.Contains(header, ";base64") {
		return "", "", platformerrors.New(platformerrors.KindValidation, "normalize", "invalid base64 image data")
	}

	format = strings.TrimPrefix(header, "data:image/")
	if idx := strings.Index(format, ";"); idx >= 0 {
		format = format[:idx]
	}
	if payload == "" {
		return "", "", platformerrors.New(platformerrors.KindValidation, "normalize", "invalid base64 image data")
	}
	return format, payload, nil
}

var allowedUploadExtensions = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
}

func formatFromFilename(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	format, ok := allowedUploadExtensions[ext]
	return format, ok
}
