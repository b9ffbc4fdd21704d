// Package capture opens the presenter webcam and reads frames from it.
package capture

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// Default webcam settings.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoCamera is returned when none of the candidate devices could be opened.
	ErrNoCamera = errors.New("could not open webcam")
)

// DefaultDevices are the device indexes tried in order by OpenFirst.
var DefaultDevices = []int{0, 1, 2}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// webcam reads frames from a local video device through OpenCV.
type webcam struct {
	deviceID int
	api      gocv.VideoCaptureAPI
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	fps      int
}

// NewCamera returns a closed Camera for the given device index.
func NewCamera(deviceID int) Camera {
	return &webcam{
		deviceID: deviceID,
		api:      BackendFor(runtime.GOOS),
		fps:      DefaultFPS,
	}
}

// BackendFor picks the OpenCV capture backend for goos. DirectShow opens
// Windows webcams far faster than the default media foundation backend.
func BackendFor(goos string) gocv.VideoCaptureAPI {
	if goos == "windows" {
		return gocv.VideoCaptureDshow
	}
	return gocv.VideoCaptureAny
}

// Open starts capture at 640x480.
func (c *webcam) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCaptureWithAPI(c.deviceID, c.api)
	if err != nil {
		return fmt.Errorf("open device %d: %w", c.deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("device %d did not open", c.deviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *webcam) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *webcam) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("device %d: read failed", c.deviceID)
	}

	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("device %d: empty frame", c.deviceID)
	}

	return &mat, nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *webcam) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *webcam) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *webcam) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// OpenFirst tries each device index in order and returns the first camera
// that opens. newCamera is usually NewCamera; tests substitute their own.
func OpenFirst(devices []int, newCamera func(deviceID int) Camera) (Camera, int, error) {
	if len(devices) == 0 {
		devices = DefaultDevices
	}

	for _, id := range devices {
		cam := newCamera(id)
		if err := cam.Open(); err != nil {
			log.Printf("Webcam index %d failed: %v", id, err)
			cam.Close()
			continue
		}
		log.Printf("Webcam opened at index %d", id)
		return cam, id, nil
	}

	return nil, -1, fmt.Errorf("%w after %d attempts", ErrNoCamera, len(devices))
}
