package bvh

import (
	"math"
	"math/rand"
	"testing"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/material"
)

func randomTriangle(rng *rand.Rand, mat *material.Material) *Triangle {
	center := core.NewVec3(rng.Float64()*20-10, rng.Float64()*20-10, rng.Float64()*20-10)
	jitter := func() core.Vec3 {
		return core.NewVec3(rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()*2-1)
	}
	return NewTriangle(center.Add(jitter()), center.Add(jitter()), center.Add(jitter()), mat)
}

// bruteForceHit linearly scans every primitive, used as the reference
// oracle for the BVH's accelerated traversal.
func bruteForceHit(prims []Primitive, ray core.Ray, tMin, tMax float64) (float64, bool) {
	closest := tMax
	found := false
	for _, p := range prims {
		if hit, ok := p.Hit(ray, tMin, closest); ok {
			closest = hit.T
			found = true
		}
	}
	return closest, found
}

func TestBVH_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mat := &material.Material{Name: "test"}

	prims := make([]Primitive, 200)
	for i := range prims {
		prims[i] = randomTriangle(rng, mat)
	}

	tree := Build(prims)

	for i := 0; i < 500; i++ {
		origin := core.NewVec3(rng.Float64()*30-15, rng.Float64()*30-15, rng.Float64()*30-15)
		dir := core.NewVec3(rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()*2-1).Normalize()
		ray := core.NewRay(origin, dir)

		wantT, wantHit := bruteForceHit(prims, ray, 1e-6, 1e6)
		got, gotHit := tree.Hit(ray, 1e-6, 1e6)

		if wantHit != gotHit {
			t.Fatalf("case %d: brute force hit=%v, bvh hit=%v (ray %v)", i, wantHit, gotHit, ray)
		}
		if wantHit && gotHit {
			if math.Abs(got.T-wantT) > 1e-6 {
				t.Errorf("case %d: brute force t=%v, bvh t=%v", i, wantT, got.T)
			}
		}
	}
}

func TestBVH_EmptyInput(t *testing.T) {
	tree := Build(nil)
	_, ok := tree.Hit(core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1)), 1e-6, 1e6)
	if ok {
		t.Errorf("expected no hit against an empty BVH")
	}
}

func TestBVH_StatsCountsEveryPrimitive(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	mat := &material.Material{Name: "test"}
	prims := make([]Primitive, 50)
	for i := range prims {
		prims[i] = randomTriangle(rng, mat)
	}
	tree := Build(prims)
	stats := tree.Stats()

	if stats.TotalPrimitives != len(prims) {
		t.Errorf("TotalPrimitives = %d, want %d", stats.TotalPrimitives, len(prims))
	}
	if stats.LeafNodes == 0 || stats.TotalNodes < stats.LeafNodes {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
