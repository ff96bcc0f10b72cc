package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/teslashibe/go-roulette/pkg/vision"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Directory replays the image files of a directory in name order. Frames
// are timestamped at a fixed interval from a fixed epoch.
type Directory struct {
	paths    []string
	pos      int
	index    uint64
	interval time.Duration
	loop     bool
	epoch    time.Time
}

// OpenDirectory lists the images in dir.
func OpenDirectory(dir string, fps float64, loop bool) (*Directory, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: fps must be positive", ErrInvalidConfig)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("source: read dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("source: no images in %s", dir)
	}
	sort.Strings(paths)

	return &Directory{
		paths:    paths,
		interval: time.Duration(float64(time.Second) / fps),
		loop:     loop,
		epoch:    time.Unix(0, 0).UTC(),
	}, nil
}

// Len returns the number of images.
func (d *Directory) Len() int {
	return len(d.paths)
}

// Next decodes the next image.
func (d *Directory) Next() (*vision.Frame, error) {
	if d.pos >= len(d.paths) {
		if !d.loop {
			return nil, io.EOF
		}
		d.pos = 0
	}
	path := d.paths[d.pos]
	d.pos++

	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	frame := vision.NewFrame(img, d.index, d.epoch.Add(time.Duration(d.index)*d.interval))
	d.index++
	return &frame, nil
}

// Close is a no-op.
func (d *Directory) Close() error {
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("source: decode %s: %w", path, err)
	}
	return img, nil
}
