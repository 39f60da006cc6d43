// Package skybox renders simulator frames from per-viewpoint cube maps using
// OpenCV for image decoding and encoding.
package skybox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/teslashibe/go-mattersim/internal/log"
	"github.com/teslashibe/go-mattersim/pkg/render"
	"gocv.io/x/gocv"
)

// Renderer samples perspective views out of the skybox images shipped with
// each scan. The faces of the most recent viewpoint are kept in memory.
type Renderer struct {
	datasetDir string

	mu      sync.Mutex // Protects the face cache
	scanID  string
	vpID    string
	faces   [numFaces]face
	decoded uint64
}

var _ render.Renderer = (*Renderer)(nil)

// New creates a renderer reading from a dataset directory laid out as
// <dataset>/<scan>/matterport_skybox_images/<viewpoint>_skybox<i>_sami.jpg.
func New(datasetDir string) (*Renderer, error) {
	if _, err := os.Stat(datasetDir); err != nil {
		return nil, fmt.Errorf("dataset dir: %w", err)
	}
	return &Renderer{datasetDir: datasetDir}, nil
}

// FacePath returns the image path of one cube face.
func (r *Renderer) FacePath(scanID, viewpointID string, i int) string {
	return filepath.Join(r.datasetDir, scanID, "matterport_skybox_images",
		fmt.Sprintf("%s_skybox%d_sami.jpg", viewpointID, i))
}

// Render implements render.Renderer.
func (r *Renderer) Render(ctx context.Context, req render.Request) (*render.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scanID != req.ScanID || r.vpID != req.ViewpointID {
		if err := r.load(ctx, req.ScanID, req.ViewpointID); err != nil {
			return nil, err
		}
	}
	return project(&r.faces, req), nil
}

// load decodes the six faces of a viewpoint.
func (r *Renderer) load(ctx context.Context, scanID, viewpointID string) error {
	var faces [numFaces]face
	for i := 0; i < numFaces; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := readFace(r.FacePath(scanID, viewpointID, i))
		if err != nil {
			return err
		}
		faces[i] = f
	}

	r.faces = faces
	r.scanID, r.vpID = scanID, viewpointID
	r.decoded++
	log.Component("skybox").Debug("skybox loaded", "scan", scanID, "viewpoint", viewpointID)
	return nil
}

func readFace(path string) (face, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()

	if img.Empty() {
		return face{}, fmt.Errorf("read skybox face %s: empty or missing image", path)
	}
	if img.Channels() != render.Channels {
		return face{}, fmt.Errorf("skybox face %s has %d channels", path, img.Channels())
	}

	return face{
		width:  img.Cols(),
		height: img.Rows(),
		pix:    img.ToBytes(),
	}, nil
}

// EncodeJPEG compresses a frame for streaming. Quality is 1-100.
func EncodeJPEG(f *render.Frame, quality int) ([]byte, error) {
	mat, err := gocv.NewMatFromBytes(f.Rows(), f.Cols(), gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("frame to mat: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
