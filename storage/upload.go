package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/errs"
)

const (
	cacheControl     = "max-age=3600"
	DefaultMaxSizeMB = 5
)

// ImageTypes are the declared content types UploadImage accepts.
var ImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}

var uploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "showcase",
		Subsystem: "storage",
		Name:      "uploads_total",
		Help:      "Uploads by bucket and result",
	},
	[]string{"bucket", "result"},
)

// File is an upload candidate. Size is trusted for the size check; the
// content is read only after every check has passed.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func FileFromBytes(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func FileFromMultipart(h *multipart.FileHeader) File {
	return File{
		Name:        h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Size:        h.Size,
		Open: func() (io.ReadCloser, error) {
			return h.Open()
		},
	}
}

// ReadAll returns the file content, refusing more than Size bytes.
func (f File) ReadAll() ([]byte, error) {
	if f.Open == nil {
		return nil, errs.NewMissingRequiredFieldError("file")
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, f.Size+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.Size {
		return nil, errs.NewMaxBodySizeExceededError(f.Size)
	}
	return data, nil
}

// Uploader names objects, validates images and reports public URLs.
type Uploader struct {
	store  ObjectStore
	now    func() time.Time
	logger zerolog.Logger
}

func NewUploader(store ObjectStore) *Uploader {
	return &Uploader{
		store:  store,
		now:    time.Now,
		logger: log.With().Str("component", "storage.uploader").Logger(),
	}
}

// CheckImage validates the declared type and the size of f without reading it.
// maxSizeMB <= 0 means DefaultMaxSizeMB.
func CheckImage(f File, maxSizeMB int) error {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	if !allowedImageType(f.ContentType) {
		return errs.NewUnsupportedMediaTypeError(f.ContentType, ImageTypes)
	}
	if limit := int64(maxSizeMB) * 1024 * 1024; f.Size > limit {
		return errs.NewValidationError("file", fmt.Sprintf("image must not exceed %dMB", maxSizeMB))
	}
	return nil
}

// UploadImage checks type and size, then uploads the image under folder.
// Nothing is sent to the store when a check fails.
func (u *Uploader) UploadImage(ctx context.Context, f File, bucket, folder string, maxSizeMB int) (string, error) {
	if err := CheckImage(f, maxSizeMB); err != nil {
		return "", err
	}

	data, err := f.ReadAll()
	if err != nil {
		return "", err
	}
	sniffed := mimetype.Detect(data)
	if !allowedImageType(sniffed.String()) {
		return "", errs.NewUnsupportedMediaTypeError(sniffed.String(), ImageTypes)
	}
	return u.put(ctx, f.Name, sniffed, data, bucket, folder)
}

// UploadFile uploads f as-is under folder and returns its public URL.
func (u *Uploader) UploadFile(ctx context.Context, f File, bucket, folder string) (string, error) {
	data, err := f.ReadAll()
	if err != nil {
		return "", err
	}
	return u.put(ctx, f.Name, mimetype.Detect(data), data, bucket, folder)
}

// DeleteFile removes the object at filePath.
func (u *Uploader) DeleteFile(ctx context.Context, bucket, filePath string) error {
	if err := u.store.Delete(ctx, bucket, filePath); err != nil {
		u.logger.Error().Err(err).Str("bucket", bucket).Str("path", filePath).Msg("delete failed")
		return errs.NewBackendError("storage", err)
	}
	return nil
}

func (u *Uploader) PublicURL(bucket, filePath string) string {
	return u.store.PublicURL(bucket, filePath)
}

func (u *Uploader) put(ctx context.Context, name string, mt *mimetype.MIME, data []byte, bucket, folder string) (string, error) {
	key := u.objectName(name, mt)
	if folder = strings.Trim(folder, "/"); folder != "" {
		key = folder + "/" + key
	}

	err := u.store.Put(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), mt.String())
	if err != nil {
		uploadsTotal.WithLabelValues(bucket, "error").Inc()
		u.logger.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("upload failed")
		return "", errs.NewBackendError("storage", err)
	}
	uploadsTotal.WithLabelValues(bucket, "ok").Inc()
	return u.store.PublicURL(bucket, key), nil
}

// objectName is <unix millis>_<random>.<ext>. The extension comes from the
// file name, or from the detected type when the name has none.
func (u *Uploader) objectName(name string, mt *mimetype.MIME) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		ext = strings.TrimPrefix(mt.Extension(), ".")
	}
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%d_%s.%s", u.now().UnixMilli(), randomString(13), ext)
}

func allowedImageType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, t := range ImageTypes {
		if contentType == t {
			return true
		}
	}
	return false
}

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomString(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}
