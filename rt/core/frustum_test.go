package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

func TestFrustumCulling(t *testing.T) {
	// Camera at origin looking down -Z, 90 deg FOV, near 1, far 100.
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	planes := ExtractFrustum(proj.Mul4(view))

	tests := []struct {
		name     string
		aabbMin  mgl32.Vec3
		aabbMax  mgl32.Vec3
		expected bool
	}{
		{"Inside (center)", mgl32.Vec3{-1, -1, -10}, mgl32.Vec3{1, 1, -5}, true},
		{"Outside (Left)", mgl32.Vec3{-20, -1, -10}, mgl32.Vec3{-15, 1, -5}, false},
		{"Outside (Right)", mgl32.Vec3{15, -1, -10}, mgl32.Vec3{20, 1, -5}, false},
		{"Outside (Behind)", mgl32.Vec3{-1, -1, 2}, mgl32.Vec3{1, 1, 5}, false},
		{"Outside (Far)", mgl32.Vec3{-1, -1, -200}, mgl32.Vec3{1, 1, -150}, false},
		{"Intersecting (Left Plane)", mgl32.Vec3{-15, -1, -10}, mgl32.Vec3{-5, 1, -5}, true},
		{"Encompassing", mgl32.Vec3{-1000, -1000, -1000}, mgl32.Vec3{1000, 1000, 1000}, true},
	}

	for _, tc := range tests {
		aabb := [2]mgl32.Vec3{tc.aabbMin, tc.aabbMax}
		if got := AABBInFrustum(aabb, planes); got != tc.expected {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestViewFrustumPlanesMatchCamera(t *testing.T) {
	v := NewView("v", 0)
	eye := mgl64.Vec3{0, 0, 0}
	v.SetCamera(
		mgl64.LookAtV(eye, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0}),
		mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0),
		eye,
	)
	planes := v.FrustumPlanes()

	inside := AABB{Min: mgl64.Vec3{-1, -1, -10}, Max: mgl64.Vec3{1, 1, -5}}
	behind := AABB{Min: mgl64.Vec3{-1, -1, 2}, Max: mgl64.Vec3{1, 1, 5}}
	if !AABBInFrustum(inside.Float32(), planes) {
		t.Error("box in front of the camera should be inside")
	}
	if AABBInFrustum(behind.Float32(), planes) {
		t.Error("box behind the camera should be outside")
	}
}

func TestRTCViewMatrixKeepsPrecision(t *testing.T) {
	v := NewView("v", 0)
	origin := mgl64.Vec3{1e7, 2e7, 0}
	eye := origin.Add(mgl64.Vec3{0, 0, 10})
	v.SetCamera(mgl64.LookAtV(eye, origin, mgl64.Vec3{0, 1, 0}), v.ProjMatrix, eye)

	// A vertex 0.5 units from the far-away origin must land 0.5 units from the
	// view axis after the RTC view transform.
	m := v.RTCViewMatrix(origin)
	p := m.Mul4x1(mgl32.Vec4{0.5, 0, 0, 1})
	if d := p.X() - 0.5; d > 1e-4 || d < -1e-4 {
		t.Errorf("expected x=0.5 in view space, got %f", p.X())
	}
	if d := p.Z() + 10; d > 1e-4 || d < -1e-4 {
		t.Errorf("expected z=-10 in view space, got %f", p.Z())
	}
}
