package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

const MaxUploadSize = 5 << 20

var ErrInvalidUpload = errors.New("image must be jpeg, png or webp and at most 5 MiB")

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Upload is an image ready to be streamed to a Store.
type Upload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Ext         string
}

// Extension validates an upload and returns the object key extension.
func Extension(contentType string, size int64) (string, error) {
	if size <= 0 || size > MaxUploadSize {
		return "", ErrInvalidUpload
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", ErrInvalidUpload
	}
	return ext, nil
}

// FromReader sniffs the content type from the first bytes rather than
// trusting the client header.
func FromReader(r io.Reader, size int64) (*Upload, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, err := Extension(contentType, size)
	if err != nil {
		return nil, err
	}
	return &Upload{
		Reader:      io.MultiReader(bytes.NewReader(head), r),
		Size:        size,
		ContentType: contentType,
		Ext:         ext,
	}, nil
}

// OpenMultipart opens a form file. The caller closes the returned file.
func OpenMultipart(fh *multipart.FileHeader) (*Upload, multipart.File, error) {
	if fh.Size > MaxUploadSize {
		return nil, nil, ErrInvalidUpload
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open upload: %w", err)
	}
	up, err := FromReader(f, fh.Size)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return up, f, nil
}
