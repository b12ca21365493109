package core

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestVec3_Cross(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vec3
		expected Vec3
	}{
		{"X cross Y", NewVec3(1, 0, 0), NewVec3(0, 1, 0), NewVec3(0, 0, 1)},
		{"Y cross Z", NewVec3(0, 1, 0), NewVec3(0, 0, 1), NewVec3(1, 0, 0)},
		{"Z cross X", NewVec3(0, 0, 1), NewVec3(1, 0, 0), NewVec3(0, 1, 0)},
		{"Parallel", NewVec3(2, 0, 0), NewVec3(5, 0, 0), NewVec3(0, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.a.Cross(tt.b)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestVec3_Normalize(t *testing.T) {
	v := NewVec3(3, 4, 0).Normalize()
	if math32.Abs(v.Length()-1) > 1e-6 {
		t.Errorf("Expected unit length, got %f", v.Length())
	}
	if math32.Abs(v.X-0.6) > 1e-6 || math32.Abs(v.Y-0.8) > 1e-6 {
		t.Errorf("Expected (0.6, 0.8, 0), got %v", v)
	}

	zero := Vec3{}.Normalize()
	if zero != (Vec3{}) {
		t.Errorf("Normalizing zero vector should return zero, got %v", zero)
	}
}

func TestVec3_Lerp(t *testing.T) {
	a := NewVec3(0, 0, 0)
	b := NewVec3(2, 4, 6)

	if got := a.Lerp(b, 0); got != a {
		t.Errorf("Lerp(0) = %v, want %v", got, a)
	}
	if got := a.Lerp(b, 1); got != b {
		t.Errorf("Lerp(1) = %v, want %v", got, b)
	}
	if got := a.Lerp(b, 0.5); got != NewVec3(1, 2, 3) {
		t.Errorf("Lerp(0.5) = %v, want (1,2,3)", got)
	}
}

func TestVec3_GammaCorrect(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected float32
	}{
		{"Zero", 0, 0},
		{"Negative", -1, 0},
		{"NaN", math32.NaN(), 0},
		{"One", 1, 1},
		{"Quarter gamma 2", 0.25, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Splat(tt.input).GammaCorrect(2).X
			if math32.Abs(got-tt.expected) > 1e-6 {
				t.Errorf("GammaCorrect(%f) = %f, want %f", tt.input, got, tt.expected)
			}
		})
	}
}

func TestVec3_Clamp(t *testing.T) {
	got := NewVec3(-1, 0.5, 3).Clamp(0, 1)
	if got != NewVec3(0, 0.5, 1) {
		t.Errorf("Clamp = %v, want (0, 0.5, 1)", got)
	}
}

func TestAABB_Hit(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))
	inf := math32.Inf(1)

	tests := []struct {
		name     string
		ray      Ray
		tMax     float32
		expected bool
	}{
		{"Straight through", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1)), inf, true},
		{"Miss to the side", NewRay(NewVec3(3, 0, -5), NewVec3(0, 0, 1)), inf, false},
		{"Pointing away", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, -1)), inf, false},
		{"Origin inside", NewRay(NewVec3(0, 0, 0), NewVec3(1, 0, 0)), inf, true},
		{"Closer hit already found", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1)), 2, false},
		{"Axis aligned grazing face plane", NewRay(NewVec3(1, 0, -5), NewVec3(0, 0, 1)), inf, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.Hit(tt.ray, 0, tt.tMax); got != tt.expected {
				t.Errorf("Hit() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAABB_Union(t *testing.T) {
	a := NewAABB(NewVec3(0, 0, 0), NewVec3(1, 1, 1))
	b := NewAABB(NewVec3(-1, 2, 0), NewVec3(0, 3, 0.5))

	u := a.Union(b)
	if !u.Contains(a) || !u.Contains(b) {
		t.Errorf("Union %v should contain both %v and %v", u, a, b)
	}

	if got := EmptyAABB().Union(a); got != a {
		t.Errorf("EmptyAABB should be the identity for Union, got %v", got)
	}
}

func TestRay_At(t *testing.T) {
	r := NewRay(NewVec3(1, 2, 3), NewVec3(0, 0, -1))
	if got := r.At(2); got != NewVec3(1, 2, 1) {
		t.Errorf("At(2) = %v, want (1,2,1)", got)
	}
	if r.Throughput != Splat(1) || r.Radiance != (Vec3{}) {
		t.Errorf("NewRay should start with unit throughput and zero radiance, got %v %v", r.Throughput, r.Radiance)
	}
}
