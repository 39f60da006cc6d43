// Package render defines how the simulator asks for camera frames.
// Frames are opaque to navigation; they depend only on pose and camera.
package render

import (
	"context"
	"fmt"
)

// Channels is the number of bytes per pixel (BGR).
const Channels = 3

// Request describes the view to render.
type Request struct {
	ScanID      string
	ViewpointID string
	Heading     float64 // radians, clockwise from +y
	Elevation   float64 // radians, positive = up
	VFOV        float64 // radians
	Width       int
	Height      int
}

// Frame is a BGR image, row-major, Height*Width*Channels bytes.
type Frame struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pix    []byte `json:"-"`
}

// NewFrame allocates a black frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*Channels),
	}
}

// Rows returns the frame height.
func (f *Frame) Rows() int { return f.Height }

// Cols returns the frame width.
func (f *Frame) Cols() int { return f.Width }

// Set writes one pixel.
func (f *Frame) Set(x, y int, b, g, r byte) {
	i := (y*f.Width + x) * Channels
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
}

// At reads one pixel.
func (f *Frame) At(x, y int) (b, g, r byte) {
	i := (y*f.Width + x) * Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Check verifies the frame matches the requested size.
func (f *Frame) Check(req Request) error {
	if f.Width != req.Width || f.Height != req.Height || len(f.Pix) != req.Width*req.Height*Channels {
		return fmt.Errorf("renderer returned %dx%d (%d bytes), want %dx%d",
			f.Width, f.Height, len(f.Pix), req.Width, req.Height)
	}
	return nil
}

// Renderer produces the frame seen from a pose. Render may block on I/O.
type Renderer interface {
	Render(ctx context.Context, req Request) (*Frame, error)
}

// Blank renders black frames of the requested size. It is what the
// simulator uses when rendering is disabled.
type Blank struct{}

// Render implements Renderer.
func (Blank) Render(ctx context.Context, req Request) (*Frame, error) {
	return NewFrame(req.Width, req.Height), nil
}

// Func adapts a function to the Renderer interface.
type Func func(ctx context.Context, req Request) (*Frame, error)

// Render implements Renderer.
func (f Func) Render(ctx context.Context, req Request) (*Frame, error) {
	return f(ctx, req)
}
