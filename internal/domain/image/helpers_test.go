package image

import (
	"bytes"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"hotdog-server-go/internal/platform/config"
	"hotdog-server-go/internal/utils"
)

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		MaxFileSize:    10 * 1024 * 1024,
		MaxPixels:      16777216,
		MaxWidth:       4096,
		MaxHeight:      4096,
		AllowedFormats: []string{"jpeg", "jpg", "png", "gif", "webp"},
	}
}

func testLogger(t *testing.T) *utils.Logger {
	t.Helper()
	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: "error",
		LogDir:   t.TempDir(),
		LogFile:  "test.log",
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(Options{
		Security: testSecurityConfig(),
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	return pipeline
}

func redRect(width, height int) *stdimage.RGBA {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, redRect(width, height)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, redRect(width, height), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}
