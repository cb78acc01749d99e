package core

import "testing"

func TestAABB_Hit(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	tests := []struct {
		name    string
		ray     Ray
		wantHit bool
	}{
		{"through center", NewRay(NewVec3(0, 0, -5), NewVec3(0, 0, 1)), true},
		{"miss to the side", NewRay(NewVec3(5, 0, -5), NewVec3(0, 0, 1)), false},
		{"parallel outside", NewRay(NewVec3(5, 0, -5), NewVec3(1, 0, 0)), false},
		{"origin inside", NewRay(NewVec3(0, 0, 0), NewVec3(0, 1, 0)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, hit := box.Hit(tt.ray, 0.0, 1000.0)
			if hit != tt.wantHit {
				t.Errorf("expected hit=%v, got %v", tt.wantHit, hit)
			}
		})
	}
}

func TestAABB_Union(t *testing.T) {
	a := NewAABB(NewVec3(0, 0, 0), NewVec3(1, 1, 1))
	b := NewAABB(NewVec3(-1, -1, -1), NewVec3(0.5, 0.5, 0.5))
	u := a.Union(b)

	want := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))
	if u.Min != want.Min || u.Max != want.Max {
		t.Errorf("expected %v, got %v", want, u)
	}
}

func TestAABB_LongestAxis(t *testing.T) {
	tests := []struct {
		name string
		box  AABB
		axis int
	}{
		{"x longest", NewAABB(NewVec3(0, 0, 0), NewVec3(10, 1, 1)), 0},
		{"y longest", NewAABB(NewVec3(0, 0, 0), NewVec3(1, 10, 1)), 1},
		{"z longest", NewAABB(NewVec3(0, 0, 0), NewVec3(1, 1, 10)), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.LongestAxis(); got != tt.axis {
				t.Errorf("expected axis %d, got %d", tt.axis, got)
			}
		})
	}
}
