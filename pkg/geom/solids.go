package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Exact polyhedral solids. Every generator returns a closed mesh with
// outward (counter-clockwise seen from outside) winding, so NormalZ is
// positive on top faces, negative on bottom faces and zero on walls.

// Cuboid returns the 12 triangles of the box b.
func Cuboid(b Box) []Triangle {
	p := func(x, y, z int) v3.Vec {
		v := b.Min
		if x == 1 {
			v.X = b.Max.X
		}
		if y == 1 {
			v.Y = b.Max.Y
		}
		if z == 1 {
			v.Z = b.Max.Z
		}
		return v
	}

	var tris []Triangle
	// bottom and top
	tris = appendQuad(tris, p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), p(1, 0, 0))
	tris = appendQuad(tris, p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1))
	// -x and +x
	tris = appendQuad(tris, p(0, 0, 0), p(0, 0, 1), p(0, 1, 1), p(0, 1, 0))
	tris = appendQuad(tris, p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), p(1, 0, 1))
	// -y and +y
	tris = appendQuad(tris, p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1))
	tris = appendQuad(tris, p(0, 1, 0), p(0, 1, 1), p(1, 1, 1), p(1, 1, 0))
	return tris
}

// Heightfield returns a closed slab whose top surface samples f on an
// nx by ny quad grid over [x0, x1] x [y0, y1] and whose bottom is the
// plane z = base. f must stay above base.
func Heightfield(x0, y0, x1, y1 float64, nx, ny int, base float64, f func(x, y float64) float64) []Triangle {
	nx, ny = max(nx, 1), max(ny, 1)
	dx, dy := (x1-x0)/float64(nx), (y1-y0)/float64(ny)

	top := func(i, j int) v3.Vec {
		x, y := x0+float64(i)*dx, y0+float64(j)*dy
		return v3.Vec{X: x, Y: y, Z: f(x, y)}
	}
	bot := func(i, j int) v3.Vec {
		return v3.Vec{X: x0 + float64(i)*dx, Y: y0 + float64(j)*dy, Z: base}
	}

	tris := make([]Triangle, 0, 4*nx*ny+4*(nx+ny))
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			tris = appendQuad(tris, top(i, j), top(i+1, j), top(i+1, j+1), top(i, j+1))
			tris = appendQuad(tris, bot(i, j), bot(i, j+1), bot(i+1, j+1), bot(i+1, j))
		}
	}
	for i := 0; i < nx; i++ {
		tris = appendQuad(tris, bot(i, 0), bot(i+1, 0), top(i+1, 0), top(i, 0))
		tris = appendQuad(tris, bot(i+1, ny), bot(i, ny), top(i, ny), top(i+1, ny))
	}
	for j := 0; j < ny; j++ {
		tris = appendQuad(tris, bot(0, j+1), bot(0, j), top(0, j), top(0, j+1))
		tris = appendQuad(tris, bot(nx, j), bot(nx, j+1), top(nx, j+1), top(nx, j))
	}
	return tris
}

// BallEndTool returns a ball-nosed cutter with its tip at the origin: a
// lower hemisphere of the given radius centered at (0, 0, radius), a
// cylindrical shank of the given length above it and a flat cap.
// segments divides the circumference and rings the quarter arc.
func BallEndTool(radius, length float64, segments, rings int) []Triangle {
	segments, rings = max(segments, 3), max(rings, 1)

	ring := func(k int) []v3.Vec {
		theta := float64(k) / float64(rings) * math.Pi / 2
		r := radius * math.Sin(theta)
		z := radius - radius*math.Cos(theta)
		return circle(r, z, segments)
	}

	var tris []Triangle
	pole := v3.Vec{}
	prev := ring(1)
	for s := 0; s < segments; s++ {
		tris = append(tris, NewTriangle(pole, prev[(s+1)%segments], prev[s]))
	}
	for k := 2; k <= rings; k++ {
		next := ring(k)
		for s := 0; s < segments; s++ {
			t := (s + 1) % segments
			tris = appendQuad(tris, prev[s], prev[t], next[t], next[s])
		}
		prev = next
	}
	return appendShank(tris, prev, radius, length)
}

// FlatEndTool returns a flat-bottomed cylindrical cutter with its bottom
// face at z = 0.
func FlatEndTool(radius, length float64, segments int) []Triangle {
	segments = max(segments, 3)
	rim := circle(radius, 0, segments)
	center := v3.Vec{}

	var tris []Triangle
	for s := 0; s < segments; s++ {
		tris = append(tris, NewTriangle(center, rim[(s+1)%segments], rim[s]))
	}
	return appendShank(tris, rim, 0, length)
}

// appendShank extrudes rim (at height z0) up by length and closes it with
// a cap facing up.
func appendShank(tris []Triangle, rim []v3.Vec, z0, length float64) []Triangle {
	n := len(rim)
	top := make([]v3.Vec, n)
	for s, p := range rim {
		top[s] = v3.Vec{X: p.X, Y: p.Y, Z: p.Z + length}
	}
	if length > 0 {
		for s := 0; s < n; s++ {
			t := (s + 1) % n
			tris = appendQuad(tris, rim[s], rim[t], top[t], top[s])
		}
	}
	center := v3.Vec{Z: z0 + length}
	for s := 0; s < n; s++ {
		tris = append(tris, NewTriangle(center, top[s], top[(s+1)%n]))
	}
	return tris
}

func circle(r, z float64, segments int) []v3.Vec {
	pts := make([]v3.Vec, segments)
	for s := range pts {
		phi := 2 * math.Pi * float64(s) / float64(segments)
		pts[s] = v3.Vec{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}
	}
	return pts
}

// appendQuad splits a-b-c-d along a-c.
func appendQuad(tris []Triangle, a, b, c, d v3.Vec) []Triangle {
	return append(tris, NewTriangle(a, b, c), NewTriangle(a, c, d))
}
