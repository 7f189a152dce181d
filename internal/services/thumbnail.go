package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path"
	"strings"
	"time"

	"github.com/anonto42/dank-memes/backend/internal/logger"
	"github.com/anonto42/dank-memes/backend/internal/metrics"
	"github.com/anonto42/dank-memes/backend/internal/models"
	"github.com/anonto42/dank-memes/backend/internal/repositories"
	"github.com/anonto42/dank-memes/backend/internal/storage"
	"github.com/gen2brain/webp"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// ErrUnsupportedImage is returned for image types the pipeline cannot decode.
var ErrUnsupportedImage = errors.New("unsupported image type")

// ThumbnailConfig configures the ThumbnailService
type ThumbnailConfig struct {
	// MaxSize bounds the longest side of the thumbnail in pixels.
	MaxSize int
	Prefix  string
	// BlurFactor is the downsample ratio used for the blur pass.
	BlurFactor int
	// URLExpires is when signed thumbnail URLs stop working.
	URLExpires time.Time
}

// ThumbnailResult describes a processed storage object
type ThumbnailResult struct {
	MemeID    string `json:"memeId,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	URL       string `json:"url,omitempty"`
	Skipped   string `json:"skipped,omitempty"`
}

// ThumbnailService builds blurred preview images for uploaded memes
type ThumbnailService struct {
	buckets storage.Buckets
	memes   repositories.MemeRepository
	cfg     ThumbnailConfig
}

// NewThumbnailService creates a new ThumbnailService
func NewThumbnailService(buckets storage.Buckets, memeRepo repositories.MemeRepository, cfg ThumbnailConfig) *ThumbnailService {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 512
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "thumb_"
	}
	if cfg.BlurFactor <= 0 {
		cfg.BlurFactor = 8
	}
	if cfg.URLExpires.IsZero() {
		cfg.URLExpires = time.Date(2500, time.March, 1, 0, 0, 0, 0, time.UTC)
	}
	return &ThumbnailService{buckets: buckets, memes: memeRepo, cfg: cfg}
}

// OnObjectFinalized creates the thumbnail for a newly uploaded image and
// stores its signed URL on the meme named after the file.
func (s *ThumbnailService) OnObjectFinalized(ctx context.Context, object models.StorageObject) (result ThumbnailResult, err error) {
	dir, fileName := path.Split(object.Name)
	log := logger.Log.With(zap.String("object", object.Name))

	if !strings.HasPrefix(object.ContentType, "image/") {
		log.Debug("This is not an image")
		result.Skipped = "not an image"
		return result, nil
	}
	if strings.HasPrefix(fileName, s.cfg.Prefix) {
		log.Debug("Already a thumbnail")
		result.Skipped = "already a thumbnail"
		return result, nil
	}

	defer func() {
		metrics.Get().Thumbnails.WithLabelValues(metrics.Result(err)).Inc()
		if err != nil {
			log.Error("Error saving thumbnail", zap.Error(err))
		}
	}()

	bucket, err := s.buckets.Open(ctx, object.Bucket)
	if err != nil {
		return result, err
	}
	data, err := bucket.Download(ctx, object.Name)
	if err != nil {
		return result, fmt.Errorf("download: %w", err)
	}

	thumb, contentType, err := MakeThumbnail(data, object.ContentType, s.cfg.MaxSize, s.cfg.BlurFactor)
	if err != nil {
		return result, err
	}

	thumbName := path.Join(dir, s.cfg.Prefix+fileName)
	if err := bucket.Upload(ctx, thumbName, contentType, thumb); err != nil {
		return result, fmt.Errorf("upload: %w", err)
	}
	url, err := bucket.SignedURL(thumbName, s.cfg.URLExpires)
	if err != nil {
		return result, fmt.Errorf("sign url: %w", err)
	}

	result.MemeID = fileName
	result.Thumbnail = thumbName
	result.URL = url
	if err := s.memes.SetThumbnail(ctx, fileName, url); err != nil {
		return result, fmt.Errorf("save thumbnail url: %w", err)
	}
	log.Info("Thumbnail URL saved", logger.WithMemeID(fileName))
	return result, nil
}

// MakeThumbnail scales data to fit maxSize, blurs it and encodes it in the
// source format. It returns the encoded bytes and their content type.
func MakeThumbnail(data []byte, contentType string, maxSize, blurFactor int) ([]byte, string, error) {
	src, err := decodeImage(data, contentType)
	if err != nil {
		return nil, "", err
	}

	scaled := fit(src, maxSize)
	blurred := blur(scaled, blurFactor)

	var buf bytes.Buffer
	switch contentType {
	case "image/png":
		err = png.Encode(&buf, blurred)
	case "image/gif":
		err = gif.Encode(&buf, blurred, nil)
	case "image/webp":
		err = webp.Encode(&buf, blurred, webp.Options{Quality: 80})
	default:
		contentType = "image/jpeg"
		err = jpeg.Encode(&buf, blurred, &jpeg.Options{Quality: 80})
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), contentType, nil
}

func decodeImage(data []byte, contentType string) (image.Image, error) {
	r := bytes.NewReader(data)
	var (
		img image.Image
		err error
	)
	switch contentType {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		img, err = jpeg.Decode(r)
	case "image/png":
		img, err = png.Decode(r)
	case "image/gif":
		img, err = gif.Decode(r)
	case "image/webp":
		img, err = webp.Decode(r)
	default:
		return nil, fmt.Errorf("%s: %w", contentType, ErrUnsupportedImage)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", contentType, err)
	}
	return img, nil
}

// fit scales img down so its longest side is at most maxSize.
func fit(img image.Image, maxSize int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxSize || h > maxSize {
		if w >= h {
			h = max(1, h*maxSize/w)
			w = maxSize
		} else {
			w = max(1, w*maxSize/h)
			h = maxSize
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// blur shrinks img by factor and scales it back up.
func blur(img *image.RGBA, factor int) *image.RGBA {
	b := img.Bounds()
	small := image.NewRGBA(image.Rect(0, 0, max(1, b.Dx()/factor), max(1, b.Dy()/factor)))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, b, draw.Src, nil)
	dst := image.NewRGBA(b)
	draw.BiLinear.Scale(dst, b, small, small.Bounds(), draw.Src, nil)
	return dst
}
