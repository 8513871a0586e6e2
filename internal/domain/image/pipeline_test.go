package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"

	platformerrors "hotdog-server-go/internal/platform/errors"
)

func TestPipeline_Process_RoundTrip(t *testing.T) {
	pipeline := testPipeline(t)
	original := encodePNG(t, 100, 100)

	validated, err := pipeline.Process(context.Background(), Input{
		Reader:         bytes.NewReader(original),
		DeclaredFormat: "png",
		Source:         SourceFile,
	})
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	if !bytes.Equal(validated.Bytes, original) {
		t.Error("validated bytes differ from the input")
	}

	decoded, err := base64.StdEncoding.DecodeString(validated.Base64)
	if err != nil {
		t.Fatalf("base64 output does not decode: %v", err)
	}
	if !bytes.Equal(decoded, original) {
		t.Error("base64 round-trip does not reproduce the original bytes")
	}

	if validated.Format != "png" {
		t.Errorf("Format = %q, expected png", validated.Format)
	}
	if validated.Width != 100 || validated.Height != 100 {
		t.Errorf("dimensions = %dx%d, expected 100x100", validated.Width, validated.Height)
	}
	if validated.Size != int64(len(original)) {
		t.Errorf("Size = %d, expected %d", validated.Size, len(original))
	}
}

func TestPipeline_Process_SizeLimit(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.MaxFileSize = 128
	pipeline, err := NewPipeline(Options{Security: cfg, Logger: testLogger(t)})
	if err != nil {
		t.Fatalf("NewPipeline() failed: %v", err)
	}

	_, err = pipeline.Process(context.Background(), Input{
		Reader:         bytes.NewReader(encodePNG(t, 200, 200)),
		DeclaredFormat: "png",
		Source:         SourceFile,
	})
	if err == nil {
		t.Fatal("expected oversized stream to fail")
	}
	if !platformerrors.IsKind(err, platformerrors.KindPayload) {
		t.Errorf("error kind = %v, expected payload", platformerrors.KindOf(err))
	}
}

func TestPipeline_Process_NilReader(t *testing.T) {
	pipeline := testPipeline(t)

	_, err := pipeline.Process(context.Background(), Input{Source: SourceFile})
	if err == nil {
		t.Fatal("expected nil reader to fail")
	}
	if !platformerrors.IsKind(err, platformerrors.KindValidation) {
		t.Errorf("error kind = %v, expected validation", platformerrors.KindOf(err))
	}
}
