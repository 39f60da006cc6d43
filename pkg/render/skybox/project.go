package skybox

import (
	"math"

	"github.com/teslashibe/go-mattersim/pkg/render"
	"gonum.org/v1/gonum/spatial/r3"
)

// Cube faces, in file order.
const (
	FaceUp    = 0
	FaceNorth = 1 // heading 0
	FaceEast  = 2 // heading π/2
	FaceSouth = 3 // heading π
	FaceWest  = 4 // heading 3π/2
	FaceDown  = 5
	numFaces  = 6
)

// face is a decoded BGR cube face.
type face struct {
	width, height int
	pix           []byte
}

func (f face) at(x, y int) (b, g, r byte) {
	i := (y*f.width + x) * render.Channels
	return f.pix[i], f.pix[i+1], f.pix[i+2]
}

// rayBasis returns the forward, right and up unit vectors of a camera with
// the given heading and elevation. World axes: x east, y north, z up.
func rayBasis(heading, elevation float64) (fwd, right, up r3.Vec) {
	sh, ch := math.Sincos(heading)
	se, ce := math.Sincos(elevation)
	fwd = r3.Vec{X: sh * ce, Y: ch * ce, Z: se}
	right = r3.Vec{X: ch, Y: -sh, Z: 0}
	up = r3.Cross(right, fwd)
	return fwd, right, up
}

// lookup maps a world direction to a cube face and face coordinates in
// [-1, 1], s growing rightwards and t downwards on the face image.
func lookup(d r3.Vec) (f int, s, t float64) {
	ax, ay, az := math.Abs(d.X), math.Abs(d.Y), math.Abs(d.Z)
	switch {
	case az >= ax && az >= ay:
		if d.Z > 0 {
			return FaceUp, d.X / az, -d.Y / az
		}
		return FaceDown, d.X / az, d.Y / az
	case ay >= ax:
		if d.Y > 0 {
			return FaceNorth, d.X / ay, -d.Z / ay
		}
		return FaceSouth, -d.X / ay, -d.Z / ay
	default:
		if d.X > 0 {
			return FaceEast, -d.Y / ax, -d.Z / ax
		}
		return FaceWest, d.Y / ax, -d.Z / ax
	}
}

// project renders a perspective view out of six cube faces.
func project(faces *[numFaces]face, req render.Request) *render.Frame {
	out := render.NewFrame(req.Width, req.Height)
	fwd, right, up := rayBasis(req.Heading, req.Elevation)

	focal := float64(req.Height) / 2 / math.Tan(req.VFOV/2)
	cx, cy := float64(req.Width)/2, float64(req.Height)/2

	for y := 0; y < req.Height; y++ {
		vy := cy - (float64(y) + 0.5)
		for x := 0; x < req.Width; x++ {
			vx := float64(x) + 0.5 - cx
			dir := r3.Add(r3.Add(r3.Scale(vx, right), r3.Scale(vy, up)), r3.Scale(focal, fwd))

			fi, s, t := lookup(dir)
			fc := faces[fi]
			if fc.width == 0 {
				continue
			}
			px := int(math.Round((s + 1) / 2 * float64(fc.width-1)))
			py := int(math.Round((t + 1) / 2 * float64(fc.height-1)))
			b, g, r := fc.at(px, py)
			out.Set(x, y, b, g, r)
		}
	}
	return out
}
