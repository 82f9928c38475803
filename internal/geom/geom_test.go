package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func vecAlmostEqual(a, b r3.Vec) bool {
	return almostEqual(a.X, b.X) && almostEqual(a.Y, b.Y) && almostEqual(a.Z, b.Z)
}

func TestRotationMatrixQuarterTurn(t *testing.T) {
	// Rotating +x about +z by 90 degrees gives +y.
	m, err := RotationMatrix(r3.Vec{Z: 1}, 90)
	if err != nil {
		t.Fatalf("RotationMatrix: %v", err)
	}
	got := m.MulVec(r3.Vec{X: 1})
	if !vecAlmostEqual(got, r3.Vec{Y: 1}) {
		t.Errorf("rotated vector = %+v, want (0,1,0)", got)
	}
}

func TestRotationMatrixUnnormalizedAxis(t *testing.T) {
	a, err := RotationMatrix(r3.Vec{Z: 1}, 37)
	if err != nil {
		t.Fatalf("RotationMatrix: %v", err)
	}
	b, err := RotationMatrix(r3.Vec{Z: 12.5}, 37)
	if err != nil {
		t.Fatalf("RotationMatrix: %v", err)
	}
	for i := range a {
		for j := range a[i] {
			if !almostEqual(a[i][j], b[i][j]) {
				t.Fatalf("matrix differs at [%d][%d]: %v vs %v", i, j, a[i][j], b[i][j])
			}
		}
	}
}

func TestRotationMatrixOrthogonal(t *testing.T) {
	m, err := RotationMatrix(r3.Vec{X: 1, Y: -2, Z: 0.5}, 73.2)
	if err != nil {
		t.Fatalf("RotationMatrix: %v", err)
	}
	// Rows must be orthonormal.
	rows := [3]r3.Vec{
		{X: m[0][0], Y: m[0][1], Z: m[0][2]},
		{X: m[1][0], Y: m[1][1], Z: m[1][2]},
		{X: m[2][0], Y: m[2][1], Z: m[2][2]},
	}
	for i := 0; i < 3; i++ {
		if !almostEqual(r3.Norm(rows[i]), 1) {
			t.Errorf("row %d norm = %v, want 1", i, r3.Norm(rows[i]))
		}
		for j := i + 1; j < 3; j++ {
			if !almostEqual(r3.Dot(rows[i], rows[j]), 0) {
				t.Errorf("rows %d,%d not orthogonal: dot = %v", i, j, r3.Dot(rows[i], rows[j]))
			}
		}
	}
}

func TestRotationMatrixZeroAxis(t *testing.T) {
	if _, err := RotationMatrix(r3.Vec{}, 30); err != ErrZeroAxis {
		t.Errorf("err = %v, want ErrZeroAxis", err)
	}
}

func TestRotateAboutPreservesDistanceToPivot(t *testing.T) {
	pivot := r3.Vec{X: 3, Y: -1, Z: 2}
	p := r3.Vec{X: 4.5, Y: 0.2, Z: 1.1}
	m, err := RotationMatrix(r3.Vec{X: 0.3, Y: 0.9, Z: -0.1}, 55)
	if err != nil {
		t.Fatalf("RotationMatrix: %v", err)
	}
	got := m.RotateAbout(p, pivot)
	before := r3.Norm(r3.Sub(p, pivot))
	after := r3.Norm(r3.Sub(got, pivot))
	if !almostEqual(before, after) {
		t.Errorf("distance to pivot changed: %v -> %v", before, after)
	}
}

func TestValenceAngle(t *testing.T) {
	tests := []struct {
		name         string
		center, a, b r3.Vec
		want         float64
	}{
		{"right angle", r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, 90},
		{"straight", r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: -2}, 180},
		{"sixty", r3.Vec{}, r3.Vec{X: 1}, r3.Vec{X: 0.5, Y: math.Sqrt(3) / 2}, 60},
		{"offset center", r3.Vec{X: 5, Y: 5, Z: 5}, r3.Vec{X: 6, Y: 5, Z: 5}, r3.Vec{X: 5, Y: 6, Z: 5}, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValenceAngle(tt.center, tt.a, tt.b)
			if !almostEqual(got, tt.want) {
				t.Errorf("ValenceAngle = %v, want %v", got, tt.want)
			}
			// Symmetric in the two outer atoms.
			if sym := ValenceAngle(tt.center, tt.b, tt.a); !almostEqual(got, sym) {
				t.Errorf("not symmetric: %v vs %v", got, sym)
			}
		})
	}
}

func TestImproperAnglePlanar(t *testing.T) {
	// Trigonal planar center: all three outer atoms in the xy plane.
	center := r3.Vec{}
	a := r3.Vec{X: 1}
	b := r3.Vec{X: -0.5, Y: math.Sqrt(3) / 2}
	c := r3.Vec{X: -0.5, Y: -math.Sqrt(3) / 2}
	if got := ImproperAngle(center, a, b, c); math.Abs(got) > tol {
		t.Errorf("planar improper = %v, want 0", got)
	}
}

func TestImproperAngleSign(t *testing.T) {
	center := r3.Vec{}
	a := r3.Vec{X: 1}
	b := r3.Vec{Y: 1}
	// (a x b) points along +z, so a mover above the plane is positive.
	up := r3.Vec{X: -0.7, Y: -0.7, Z: 0.5}
	down := r3.Vec{X: -0.7, Y: -0.7, Z: -0.5}
	if got := ImproperAngle(center, a, b, up); got <= 0 {
		t.Errorf("above-plane improper = %v, want > 0", got)
	}
	if got := ImproperAngle(center, a, b, down); got >= 0 {
		t.Errorf("below-plane improper = %v, want < 0", got)
	}
}

func TestImproperAnglePerpendicular(t *testing.T) {
	// Mover along the plane normal is a 90 degree out-of-plane angle.
	got := ImproperAngle(r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 2})
	if !almostEqual(got, 90) {
		t.Errorf("perpendicular improper = %v, want 90", got)
	}
}
