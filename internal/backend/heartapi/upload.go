package heartapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"heartwork/internal/service"
)

// MaxUploadSize is the largest image the server accepts.
const MaxUploadSize = 5 << 20

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// UploadImage posts an image to the gallery. Files over MaxUploadSize and
// content that is not an image are rejected before any request.
func (c *Client) UploadImage(ctx context.Context, name string, r io.Reader) (service.Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return service.Image{}, fmt.Errorf("reading %s: %w", name, err)
	}
	contentType, err := CheckImage(data)
	if err != nil {
		return service.Image{}, fmt.Errorf("%s: %w", name, err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, quoteEscaper.Replace(filepath.Base(name))))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return service.Image{}, err
	}
	if _, err := part.Write(data); err != nil {
		return service.Image{}, err
	}
	if err := mw.Close(); err != nil {
		return service.Image{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/gallery/upload", &buf)
	if err != nil {
		return service.Image{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var img service.Image
	if err := c.send(req, &img); err != nil {
		return service.Image{}, err
	}
	return img, nil
}

// CheckImage validates an upload and returns its sniffed content type.
func CheckImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file: %w", service.ErrValidation)
	}
	if len(data) > MaxUploadSize {
		return "", fmt.Errorf("file is larger than 5MB: %w", service.ErrValidation)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("only image files are allowed, got %s: %w", contentType, service.ErrValidation)
	}
	return contentType, nil
}
