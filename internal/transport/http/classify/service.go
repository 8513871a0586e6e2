package classifyhttp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"hotdog-server-go/internal/domain/classify"
	domainimage "hotdog-server-go/internal/domain/image"
	"hotdog-server-go/internal/platform/config"
	platformerrors "hotdog-server-go/internal/platform/errors"
	"hotdog-server-go/internal/platform/storage"
	"hotdog-server-go/internal/utils"
)

const (
	verdictHotdog    = "Hotdog! 🌭"
	verdictNotHotdog = "Not Hotdog! ❌"
)

// Service is the HTTP surface of the classifier: POST /classify and
// GET /health.
type Service struct {
	config     *config.Config
	logger     *utils.Logger
	normalizer *domainimage.Normalizer
	classifier classify.Classifier
	uploads    *storage.UploadStore
}

// NewService wires the classification endpoint together.
func NewService(
	cfg *config.Config,
	logger *utils.Logger,
	normalizer *domainimage.Normalizer,
	classifier classify.Classifier,
	uploads *storage.UploadStore,
) (*Service, error) {
	if cfg == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "classify_http.new", "config is required")
	}
	if normalizer == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "classify_http.new", "image normalizer is required")
	}
	if classifier == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "classify_http.new", "classifier is required")
	}
	if uploads == nil {
		return nil, platformerrors.New(platformerrors.KindConfig, "classify_http.new", "upload store is required")
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}

	return &Service{
		config:     cfg,
		logger:     logger,
		normalizer: normalizer,
		classifier: classifier,
		uploads:    uploads,
	}, nil
}

// Register attaches the classification routes.
func (s *Service) Register(router *gin.RouterGroup) {
	router.POST("/classify", s.handleClassify)
	router.GET("/health", s.handleHealth)
	s.logger.InfoTag("HTTP", "classification routes registered")
}

func (s *Service) handleClassify(c *gin.Context) {
	requestID := uuid.NewString()
	start := time.Now()

	source, release, err := s.extractSource(c)
	if err != nil {
		s.respondError(c, requestID, err)
		return
	}
	defer release()

	s.logger.InfoTag("HTTP", "classify request %s: source=%s", requestID, source.Kind)

	validated, err := s.normalizer.Resolve(c.Request.Context(), source)
	if err != nil {
		s.respondError(c, requestID, err)
		return
	}

	staged, err := s.uploads.Save(requestID, validated.Format, validated.Bytes)
	if err != nil {
		s.respondError(c, requestID, err)
		return
	}
	defer s.uploads.Remove(staged)

	result, err := s.classifier.Classify(c.Request.Context(), validated)
	if err != nil {
		s.respondError(c, requestID, err)
		return
	}

	verdict := verdictNotHotdog
	if result.IsHotdog {
		verdict = verdictHotdog
	}

	response := ClassifyResponse{
		Result:      verdict,
		IsHotdog:    result.IsHotdog,
		Description: result.Description,
		Source:      string(source.Kind),
		RequestID:   requestID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if source.Kind == domainimage.SourceURL {
		response.ProcessedURL = source.URL
	}

	s.logger.InfoTag("HTTP", "classify request %s: verdict=%t (%s)", requestID, result.IsHotdog, time.Since(start))
	c.JSON(http.StatusOK, response)
}

func (s *Service) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	connected := s.classifier.TestConnection(ctx)
	status := "healthy"
	if !connected {
		status = "unhealthy"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:          status,
		APIConnection:   connected,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		MemoryUsageKB:   memoryUsageKB(),
		UploadDirSizeMB: s.uploads.SizeMB(),
	})
}

// extractSource requires exactly one of the three input fields. The returned
// release func closes the upload reader once the request is done with it.
func (s *Service) extractSource(c *gin.Context) (domainimage.Source, func(), error) {
	noop := func() {}

	fileHeader, fileErr := c.FormFile("file")
	rawURL := c.PostForm("url")
	rawBase64 := c.PostForm("base64")

	provided := 0
	if fileErr == nil && fileHeader != nil {
		provided++
	}
	if rawURL != "" {
		provided++
	}
	if rawBase64 != "" {
		provided++
	}

	switch {
	case provided == 0:
		return domainimage.Source{}, noop, platformerrors.New(platformerrors.KindValidation, "classify_http",
			"no image provided: submit a file upload, a url field, or a base64 field")
	case provided > 1:
		return domainimage.Source{}, noop, platformerrors.New(platformerrors.KindValidation, "classify_http",
			"provide exactly one of file, url or base64")
	}

	if fileErr == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return domainimage.Source{}, noop, platformerrors.Wrap(platformerrors.KindValidation, "classify_http",
				"failed to read uploaded file", err)
		}
		return domainimage.FromUpload(file, fileHeader.Filename), func() { file.Close() }, nil
	}
	if rawURL != "" {
		return domainimage.FromURL(rawURL), noop, nil
	}
	return domainimage.FromBase64(rawBase64), noop, nil
}

func (s *Service) respondError(c *gin.Context, requestID string, err error) {
	status := platformerrors.HTTPStatus(err)

	message := "internal server error"
	details := ""
	var typed *platformerrors.Error
	if errors.As(err, &typed) {
		message = typed.Message
		if typed.Cause != nil && status != http.StatusInternalServerError {
			details = typed.Cause.Error()
		}
	}

	s.logger.WarnTag("HTTP", "request %s failed with %d: %v", requestID, status, err)

	c.JSON(status, ErrorResponse{
		Error:     message,
		Details:   details,
		RequestID: requestID,
	})
}

func memoryUsageKB() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS / 1024
}
