package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/ninikarlina/gallery-davinci/internal/logging"
)

var (
	ImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	PDFTypes   = []string{"application/pdf"}
)

// CheckFile sniffs the upload's content type and enforces the size limit.
// The returned error message is safe to show to clients.
func CheckFile(fh *multipart.FileHeader, maxSize int64, allowed []string) (string, error) {
	if fh.Size > maxSize {
		return "", fmt.Errorf("file %s exceeds %d MB limit", fh.Filename, maxSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("cannot read %s", fh.Filename)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("cannot read %s", fh.Filename)
	}
	ct := http.DetectContentType(head[:n])
	if !slices.Contains(allowed, ct) {
		return "", fmt.Errorf("file %s has unsupported type %s", fh.Filename, ct)
	}
	return ct, nil
}

// SaveUpload copies a multipart file into Files under folder.
func SaveUpload(ctx context.Context, folder string, fh *multipart.FileHeader) (Object, error) {
	f, err := fh.Open()
	if err != nil {
		return Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return Files.Save(ctx, folder, fh.Filename, f)
}

// Remove deletes stored objects. Failures only leak the blob, so they are
// logged and otherwise ignored.
func Remove(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := Files.Delete(ctx, key); err != nil {
			logging.L.Warn("delete stored file", zap.String("key", key), zap.Error(err))
		}
	}
}
