// Package geom provides the vector geometry used to perturb and measure
// angles around a bonded molecular center: axis-angle rotation matrices,
// valence angles, and signed out-of-plane (improper) angles.
package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrZeroAxis is returned when a rotation axis has (near) zero length,
// which happens when the atoms defining it are coincident or collinear.
var ErrZeroAxis = errors.New("geom: rotation axis has zero length")

// Matrix is a 3x3 rotation matrix in row-major order.
type Matrix [3][3]float64

// RotationMatrix returns the matrix for a counterclockwise rotation about
// axis by theta degrees, looking from the axis tip toward the origin.
// The axis does not need to be normalized.
func RotationMatrix(axis r3.Vec, thetaDeg float64) (Matrix, error) {
	n := r3.Norm(axis)
	if n < 1e-12 {
		return Matrix{}, ErrZeroAxis
	}
	axis = r3.Scale(1/n, axis)

	theta := thetaDeg * math.Pi / 180
	a := math.Cos(theta / 2)
	s := -math.Sin(theta / 2)
	b, c, d := axis.X*s, axis.Y*s, axis.Z*s

	aa, bb, cc, dd := a*a, b*b, c*c, d*d
	bc, ad, ac, ab, bd, cd := b*c, a*d, a*c, a*b, b*d, c*d
	return Matrix{
		{aa + bb - cc - dd, 2 * (bc + ad), 2 * (bd - ac)},
		{2 * (bc - ad), aa + cc - bb - dd, 2 * (cd + ab)},
		{2 * (bd + ac), 2 * (cd - ab), aa + dd - bb - cc},
	}, nil
}

// MulVec applies the matrix to a vector.
func (m Matrix) MulVec(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// RotateAbout rotates p about an axis that passes through pivot.
func (m Matrix) RotateAbout(p, pivot r3.Vec) r3.Vec {
	return r3.Add(pivot, m.MulVec(r3.Sub(p, pivot)))
}

// ValenceAngle returns the angle in degrees at center between the bonds
// center->a and center->b.
func ValenceAngle(center, a, b r3.Vec) float64 {
	u := r3.Sub(a, center)
	w := r3.Sub(b, center)
	cos := r3.Dot(u, w) / (r3.Norm(u) * r3.Norm(w))
	return math.Acos(clamp(cos)) * 180 / math.Pi
}

// ImproperAngle returns the signed out-of-plane angle in degrees between the
// bond center->mover and the plane spanned by center->a and center->b. The
// sign is positive when mover lies on the side of the plane pointed to by
// (a-center) x (b-center). A planar center gives zero.
func ImproperAngle(center, a, b, mover r3.Vec) float64 {
	u := r3.Sub(a, center)
	w := r3.Sub(b, center)
	normal := r3.Cross(u, w)
	bond := r3.Sub(mover, center)
	sin := r3.Dot(normal, bond) / (r3.Norm(normal) * r3.Norm(bond))
	return math.Asin(clamp(sin)) * 180 / math.Pi
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
