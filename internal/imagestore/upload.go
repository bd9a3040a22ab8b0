package imagestore

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/octane-tech/nfc-tracker/internal/platform/httpx"
)

var acceptedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// Upload is an image read from a multipart form.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// FormImage reads the named file field from a parsed multipart request and
// checks that it is an accepted image no larger than maxBytes.
func FormImage(r *http.Request, field string, maxBytes int64) (Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return Upload{}, fmt.Errorf("%w: %s is required", httpx.ErrValidation, field)
		}
		return Upload{}, fmt.Errorf("%w: %s: %v", httpx.ErrValidation, field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("read %s: %w", field, err)
	}
	if int64(len(data)) > maxBytes {
		return Upload{}, fmt.Errorf("%w: %s exceeds %d bytes", httpx.ErrValidation, field, maxBytes)
	}
	contentType, err := DetectImage(data)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Name: header.Filename, ContentType: contentType, Data: data}, nil
}

// DetectImage sniffs data and accepts only jpeg, png, webp and gif images.
func DetectImage(data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	if _, ok := acceptedTypes[contentType]; !ok {
		return "", fmt.Errorf("%w: only image files (jpg, jpeg, png, webp, gif) are allowed", httpx.ErrValidation)
	}
	return contentType, nil
}
