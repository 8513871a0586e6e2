package image

// SourceKind names the input shape a request arrived with.
type SourceKind string

const (
	SourceFile   SourceKind = "file"
	SourceURL    SourceKind = "url"
	SourceBase64 SourceKind = "base64"
)

// Validated owns a byte buffer that has passed size and format checks and is
// ready to transmit. It lives for the duration of one request only.
type Validated struct {
	Bytes  []byte
	Base64 string
	Format string
	Width  int
	Height int
	Size   int64
}

// ValidationResult captures the outcome of payload validation.
type ValidationResult struct {
	IsValid  bool
	Format   string
	Width    int
	Height   int
	FileSize int64
	Error    error
}
