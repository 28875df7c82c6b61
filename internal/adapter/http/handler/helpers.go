package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ressKim-io/EvoGuard/predict-service/internal/domain/entity"
)

// Upload limits
const (
	ImageFormField = "image"
	MaxImageBytes  = 10 << 20
)

// Image reference errors
var (
	ErrNoUpload        = errors.New("no image uploaded")
	ErrPathsDisabled   = errors.New("image_path is not accepted, upload the image instead")
	ErrPathOutsideRoot = errors.New("image_path is outside the image root")
)

// ResolveImagePath maps a client-supplied image path into root.
// Relative paths are joined to root; absolute paths must already lie
// inside it. Symlinks are resolved before the check so a link cannot lead
// out of root. The file itself is not required to exist.
func ResolveImagePath(root, path string) (string, error) {
	if root == "" {
		return "", ErrPathsDisabled
	}
	if path == "" {
		return "", nil
	}

	base, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve image root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}

	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(base, full)
	}
	full = filepath.Clean(full)
	if resolved, err := filepath.EvalSymlinks(full); err == nil {
		full = resolved
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(full)); err == nil {
		full = filepath.Join(dir, filepath.Base(full))
	}

	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathOutsideRoot
	}
	return full, nil
}

// IsMultipart reports whether the request body is a multipart form
func IsMultipart(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEMultipartPOSTForm
}

// ReadImageUpload reads the uploaded image file from the multipart form.
// Files larger than MaxImageBytes are rejected.
func ReadImageUpload(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile(ImageFormField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrNoUpload
		}
		return nil, fmt.Errorf("read form: %w", err)
	}
	if header.Size > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoUpload
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	return data, nil
}

// ValidInputKinds contains the accepted values of the run "kind" field
var ValidInputKinds = map[entity.InputKind]bool{
	entity.InputKindText:  true,
	entity.InputKindImage: true,
}

// IsValidInputKind checks if the given kind selects a model
func IsValidInputKind(kind string) bool {
	return ValidInputKinds[entity.InputKind(kind)]
}
