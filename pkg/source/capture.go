package source

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/pkg/vision"
	"gocv.io/x/gocv"
)

// Capture reads frames from a camera, video file or stream through gocv.
type Capture struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	live   bool
	index  uint64
	base   time.Time
	logger *slog.Logger
}

// CaptureMode says how a capture URI is read.
type CaptureMode int

const (
	// ModeFile is a recorded file: it ends, and frames carry container time.
	ModeFile CaptureMode = iota
	// ModeDevice is a local camera selected by index.
	ModeDevice
	// ModeStream is a network stream such as rtsp:// or http://.
	ModeStream
)

func (m CaptureMode) String() string {
	switch m {
	case ModeDevice:
		return "device"
	case ModeStream:
		return "stream"
	default:
		return "file"
	}
}

// Live reports whether the mode never ends and is timestamped on arrival.
func (m CaptureMode) Live() bool {
	return m == ModeDevice || m == ModeStream
}

// ClassifyURI returns the capture mode of uri. A bare integer is a device,
// a URL with a network scheme is a stream, anything else is a file.
func ClassifyURI(uri string) CaptureMode {
	uri = strings.TrimSpace(uri)
	if _, err := strconv.Atoi(uri); err == nil {
		return ModeDevice
	}
	u, err := url.Parse(uri)
	// one-letter schemes are Windows drive letters
	if err != nil || len(u.Scheme) < 2 || strings.EqualFold(u.Scheme, "file") {
		return ModeFile
	}
	return ModeStream
}

// OpenCapture opens cfg.URI according to ClassifyURI.
func OpenCapture(cfg Config) (*Capture, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	mode := ClassifyURI(cfg.URI)
	live := mode.Live()
	if mode == ModeDevice {
		id, _ := strconv.Atoi(strings.TrimSpace(cfg.URI))
		vc, err = gocv.OpenVideoCapture(id)
	} else {
		vc, err = gocv.VideoCaptureFile(cfg.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("source: open %q: %w", cfg.URI, err)
	}

	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 && mode == ModeDevice {
		vc.Set(gocv.VideoCaptureFPS, cfg.FPS)
	}

	logger := log.Component("source")
	logger.Info("capture opened",
		"uri", cfg.URI,
		"mode", mode,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
		"fps", vc.Get(gocv.VideoCaptureFPS))

	return &Capture{
		cap:    vc,
		mat:    gocv.NewMat(),
		live:   live,
		base:   time.Now(),
		logger: logger,
	}, nil
}

// Next reads one frame. A device or stream with no frame returns nil; a
// file that ended returns io.EOF. Live frames are timestamped on arrival,
// recorded frames from the container position so replays are reproducible.
func (c *Capture) Next() (*vision.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil, io.EOF
	}
	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		if c.live {
			return nil, nil
		}
		return nil, io.EOF
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("source: decode frame %d: %w", c.index, err)
	}

	ts := time.Now()
	if !c.live {
		ms := c.cap.Get(gocv.VideoCapturePosMsec)
		ts = c.base.Add(time.Duration(ms * float64(time.Millisecond)))
	}

	frame := vision.NewFrame(img, c.index, ts)
	c.index++
	return &frame, nil
}

// Close releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cap == nil {
		return nil
	}
	c.mat.Close()
	err := c.cap.Close()
	c.cap = nil
	return err
}
