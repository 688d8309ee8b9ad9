package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/markdave123-py/Clausewise/internal/services"
)

// parseUpload bounds the request body and parses its multipart form.
func parseUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return tooLargeError(maxBytes)
		}
		return badRequest("expected a multipart form")
	}
	return nil
}

func readFileHeader(fh *multipart.FileHeader) (services.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return services.FileUpload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.FileUpload{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return services.FileUpload{
		Name:        filepath.Base(fh.Filename),
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// formFiles returns every file posted under any of names.
func formFiles(r *http.Request, names ...string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	var out []*multipart.FileHeader
	for _, n := range names {
		out = append(out, r.MultipartForm.File[n]...)
	}
	return out
}
