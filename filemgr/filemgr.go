// Package filemgr stores uploaded images under the upload root with a
// resized thumbnail next to them. Records keep only the returned URLs.
package filemgr

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"cafehub/apperr"
	"cafehub/logging"
	"cafehub/utils"

	"github.com/disintegration/imaging"
)

const (
	MaxImageSize = 10 << 20
	ThumbWidth   = 300
	maxDimension = 6000
)

// Kind is the sub folder an image lands in.
type Kind string

const (
	KindCafe    Kind = "cafe"
	KindLogo    Kind = "logo"
	KindBanner  Kind = "banner"
	KindProduct Kind = "products"
	KindFilm    Kind = "films"
	KindEvent   Kind = "events"
)

var (
	ErrInvalidMIME  = errors.New("invalid MIME type")
	ErrFileTooLarge = errors.New("file size exceeds limit")
)

// Saved points at a stored image and its thumbnail.
type Saved struct {
	URL      string `json:"url"`
	ThumbURL string `json:"thumb_url"`
}

type Store struct {
	root      string
	urlPrefix string
}

// NewStore serves files written under root at urlPrefix, e.g. "/static/uploads".
func NewStore(root, urlPrefix string) *Store {
	return &Store{root: root, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

func (s *Store) Root() string { return s.root }

// SaveImage validates, re-encodes and stores an image for cafeID.
func (s *Store) SaveImage(r io.Reader, cafeID string, kind Kind) (Saved, error) {
	buf, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return Saved{}, fmt.Errorf("read image: %w", err)
	}
	if len(buf) > MaxImageSize {
		return Saved{}, apperr.Wrap(apperr.KindValidation, ErrFileTooLarge, "image is larger than %d MB", MaxImageSize>>20)
	}
	mimeType := http.DetectContentType(buf)
	if !utils.SupportedImageTypes[mimeType] {
		return Saved{}, apperr.Wrap(apperr.KindValidation, ErrInvalidMIME, "unsupported image type %s", mimeType)
	}

	// decoding and re-encoding drops EXIF and anything appended to the file
	img, err := imaging.Decode(bytes.NewReader(buf), imaging.AutoOrientation(true))
	if err != nil {
		return Saved{}, apperr.Wrap(apperr.KindValidation, err, "image could not be decoded")
	}
	if b := img.Bounds(); b.Dx() > maxDimension || b.Dy() > maxDimension {
		return Saved{}, apperr.Validation("image dimensions %dx%d exceed %dx%d", b.Dx(), b.Dy(), maxDimension, maxDimension)
	}

	rel := filepath.Join(utils.SanitizeFilename(cafeID), string(kind))
	dir := filepath.Join(s.root, rel)
	if err := utils.EnsureDir(filepath.Join(dir, "thumb")); err != nil {
		return Saved{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	ext := ".jpg"
	if mimeType == "image/png" {
		ext = ".png"
	}
	name := utils.GetUUID() + ext
	if err := imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(90)); err != nil {
		return Saved{}, fmt.Errorf("save image: %w", err)
	}
	thumbName := strings.TrimSuffix(name, ext) + ".jpg"
	thumb := imaging.Resize(img, ThumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(dir, "thumb", thumbName), imaging.JPEGQuality(85)); err != nil {
		logging.For("filemgr").WithError(err).WithField("file", name).Warn("thumbnail not written")
		thumbName = ""
	}

	out := Saved{URL: s.url(rel, name)}
	if thumbName != "" {
		out.ThumbURL = s.url(filepath.Join(rel, "thumb"), thumbName)
	}
	return out, nil
}

func (s *Store) url(rel, name string) string {
	return s.urlPrefix + "/" + filepath.ToSlash(filepath.Join(rel, name))
}

// FormImage returns the file posted under field in a multipart request.
func FormImage(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindValidation, err, "expected a multipart form")
	}
	f, h, err := r.FormFile(field)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindValidation, err, "missing file field %q", field)
	}
	return f, h, nil
}
