// Package archive keeps copies of generated images: a local file with a webp
// thumbnail, and optionally a rehosted copy on an image host.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // Keep for decoding jpegs
	_ "image/png"  // Keep for decoding pngs
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"imagegen/imagehost"
	"imagegen/providers"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// ThumbnailSize bounds both sides of a thumbnail.
const ThumbnailSize = 256

// Uploader rehosts image bytes and returns where they can be fetched.
type Uploader interface {
	UploadImage(ctx context.Context, imageBytes []byte, filename string) (*imagehost.UploadResponse, error)
}

// Entry describes one archived image.
type Entry struct {
	SourceURL     string
	Path          string
	ThumbnailPath string
	HostedURL     string
	Format        string
	Width         int
	Height        int
}

// Archiver downloads generated images and stores them.
type Archiver struct {
	// Dir receives the local copies; empty disables them.
	Dir    string
	Host   Uploader
	Client *http.Client

	now func() time.Time
}

// New returns an archiver, or nil when neither a directory nor a host is set.
func New(dir string, host Uploader, client *http.Client) *Archiver {
	if dir == "" && host == nil {
		return nil
	}
	return &Archiver{Dir: dir, Host: host, Client: client, now: time.Now}
}

// Archive downloads imageURL and stores it according to the archiver's settings.
func (a *Archiver) Archive(ctx context.Context, imageURL string) (*Entry, error) {
	data, _, err := providers.DownloadFile(ctx, a.Client, imageURL)
	if err != nil {
		return nil, fmt.Errorf("archive: failed to download %s: %w", imageURL, err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("archive: failed to detect image format: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("archive: failed to decode image: %w", err)
	}

	entry := &Entry{
		SourceURL: imageURL,
		Format:    format,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
	}
	name := a.now().Format("20060102150405.000")
	filename := fmt.Sprintf("%s.%s", name, format)

	if a.Dir != "" {
		if err := os.MkdirAll(a.Dir, 0755); err != nil {
			return nil, fmt.Errorf("archive: failed to create %s: %w", a.Dir, err)
		}
		entry.Path = filepath.Join(a.Dir, filename)
		if err := os.WriteFile(entry.Path, data, 0644); err != nil {
			return nil, fmt.Errorf("archive: failed to save image: %w", err)
		}

		thumb, err := Thumbnail(img)
		if err != nil {
			return nil, err
		}
		entry.ThumbnailPath = filepath.Join(a.Dir, name+"_thumb.webp")
		if err := os.WriteFile(entry.ThumbnailPath, thumb, 0644); err != nil {
			return nil, fmt.Errorf("archive: failed to save thumbnail: %w", err)
		}
		log.Printf("Image saved to %s", entry.Path)
	}

	if a.Host != nil {
		uploadResp, err := a.Host.UploadImage(ctx, data, filename)
		if err != nil {
			// The local copy, if any, is already on disk; keep it in the entry.
			return entry, fmt.Errorf("archive: failed to upload image: %w", err)
		}
		entry.HostedURL = uploadResp.Links.Direct
		log.Printf("Image uploaded to %s", entry.HostedURL)
	}

	return entry, nil
}

// Thumbnail shrinks img to fit ThumbnailSize and encodes it as webp.
// Images already small enough are encoded at their own size.
func Thumbnail(img image.Image) ([]byte, error) {
	thumb := resize.Thumbnail(ThumbnailSize, ThumbnailSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, thumb, &webp.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("archive: failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
