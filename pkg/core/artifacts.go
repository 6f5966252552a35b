package core

// Attachment represents a debug artifact captured while a test runs
type Attachment struct {
	Name        string `json:"name"`           // Descriptive name: screenshot, log
	ContentType string `json:"contentType"`    // MIME type: image/png, text/plain
	Path        string `json:"path,omitempty"` // File path relative to output directory; empty when only Body is kept
	Body        []byte `json:"-"`              // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentLog        = "log"
)

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeText = "text/plain"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Path:        path,
		Body:        data,
	}
}

// NewLogAttachment creates a plain-text log attachment
func NewLogAttachment(path string, data []byte) Attachment {
	return Attachment{
		Name:        AttachmentLog,
		ContentType: ContentTypeText,
		Path:        path,
		Body:        data,
	}
}

// CaptureRequest describes a screenshot to take. Capture encoding is done
// by an external collaborator through ScreenCaptureFunc.
type CaptureRequest struct {
	Rect    Rect     // Area in screen space; empty means the union of Windows
	Windows []Window // Windows to capture, front-most last
	Label   string   // Used to build the output file name
}

// ScreenCaptureFunc captures the requested area and returns encoded image
// data. It is called from the test coroutine while the frame driver waits.
type ScreenCaptureFunc func(req CaptureRequest) ([]byte, error)
