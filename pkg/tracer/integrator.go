package tracer

import (
	"math"

	"github.com/voxtrace/voxtrace/pkg/bvh"
	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/env"
	"github.com/voxtrace/voxtrace/pkg/material"
	"github.com/voxtrace/voxtrace/pkg/voxel"
)

// tMax is the absolute ray-extent cap; nothing in a bounded voxel scene
// should ever need a longer segment.
const tMax = 1e6

// epsilon separates octree-hit and BVH-hit distances when breaking ties,
// and nudges shadow/continuation rays off the surface they left.
const epsilon = 1e-4

// maxDepth is the absolute bounce cap referenced by spec.md §4.3 step 7
// ("implementation-chosen >= 64").
const maxDepth = 64

// World bundles everything a path needs to intersect and shade: the
// voxel octree pair, the entity BVH, and the environment (sun/sky/fog/
// emitter grid). It is borrowed read-only by worker goroutines for the
// duration of one sample pass.
type World struct {
	Solid   voxel.Octree
	Water   voxel.Octree
	Palette *material.Palette
	BVH     *bvh.BVH
	Sun     *env.Sun
	Sky     *env.Sky
	Emitters *env.EmitterGrid

	RayDepth           int // Russian-roulette onset depth
	EmitterSampling    bool
}

// worldHit is the nearer of an octree traversal and a BVH traversal,
// resolved by the tie-break rule in spec.md §4.3 ("Tie-breaks & numeric
// policy"): octree distance + epsilon compared against BVH distance.
type worldHit struct {
	SurfaceInteraction
	inWater bool
}

func (w *World) intersect(ray core.Ray, tLimit float64) (worldHit, bool) {
	var best worldHit
	found := false
	closest := tLimit

	if voxHit, ok := voxel.EnterBlock(w.Solid, w.Palette, ray, closest); ok {
		d := voxHit.Distance + epsilon
		if d < closest {
			closest = d
			best = worldHit{SurfaceInteraction: SurfaceInteraction{
				Point: ray.At(voxHit.Distance), Normal: voxHit.Normal, UV: voxHit.UV,
				T: voxHit.Distance, FrontFace: true, Material: voxHit.Material,
			}}
			found = true
		}
	}

	if w.BVH != nil {
		if hit, ok := w.BVH.Hit(ray, 1e-6, closest); ok {
			best = worldHit{SurfaceInteraction: *hit}
			found = true
		}
	}

	return best, found
}

// waterExitDistance returns the distance at which ray exits the current
// water volume, used to attenuate throughput by the medium it traveled.
func (w *World) waterExitDistance(ray core.Ray, limit float64) (float64, bool) {
	hit, ok := voxel.ExitWater(w.Water, w.Palette, ray, limit)
	if !ok {
		return 0, false
	}
	return hit.Distance, true
}

// TraceSample runs one full path-tracing sample through ray, returning
// the radiance estimate. sampler supplies all randomness; world.RayDepth
// determines when Russian roulette may begin firing (a minimum-samples
// gate is the render manager's concern, not this function's).
func TraceSample(ray core.Ray, world *World, sampler core.Sampler) core.Vec3 {
	if !ray.Direction.IsFinite() || !ray.Origin.IsFinite() || ray.Direction.LengthSquared() == 0 {
		return core.Vec3{}
	}

	radiance := core.Vec3{}
	throughput := core.NewVec3(1, 1, 1)
	currentRay := ray
	inWater := false

	for depth := 0; depth < maxDepth; depth++ {
		if inWater {
			if exitDist, ok := world.waterExitDistance(currentRay, tMax); ok {
				attenuation := waterAttenuation(exitDist)
				throughput = throughput.MultiplyVec(attenuation)
				currentRay = core.NewRay(currentRay.At(exitDist+epsilon), currentRay.Direction)
				inWater = false
			}
		}

		hit, ok := world.intersect(currentRay, tMax)
		if !ok {
			sky := world.Sky.Emit(currentRay.Direction)
			if world.Sun != nil && world.Sun.Visible(currentRay.Direction) {
				sky = sky.Add(world.Sun.Radiance)
			}
			radiance = radiance.Add(throughput.MultiplyVec(sky))
			break
		}

		if segScatter, scattered := maybeFogScatter(currentRay, hit.T, world.Sky, sampler); scattered {
			radiance = radiance.Add(throughput.MultiplyVec(segScatter.color))
			throughput = throughput.MultiplyVec(segScatter.throughputScale)
			currentRay = core.NewRay(currentRay.At(segScatter.distance), sampleIsotropic(sampler))
			continue
		}

		if hit.Material.Emittance > 0 {
			radiance = radiance.Add(throughput.Multiply(float64(hit.Material.Emittance)).MultiplyVec(hit.Material.Albedo.Evaluate(hit.UV, hit.Point)))
		}

		if hit.Material.Water {
			inWater = true
		}

		scatter, didScatter := Scatter(currentRay, hit.SurfaceInteraction, sampler)
		if !didScatter {
			break
		}

		if !scatter.IsSpecular() {
			direct := directLight(hit.SurfaceInteraction, scatter, world, sampler)
			radiance = radiance.Add(throughput.MultiplyVec(direct))
		}

		cosTheta := math.Abs(scatter.Scattered.Direction.Normalize().Dot(hit.Normal))
		if scatter.IsSpecular() {
			throughput = throughput.MultiplyVec(scatter.Attenuation)
		} else {
			if scatter.PDF <= 0 {
				break
			}
			throughput = throughput.MultiplyVec(scatter.Attenuation).Multiply(cosTheta / scatter.PDF)
		}

		if depth >= world.RayDepth {
			if sampler.Get1D() < 0.5 {
				break
			}
			throughput = throughput.Multiply(2.0)
		}

		currentRay = core.NewRay(hit.Point.Add(hit.Normal.Multiply(epsilon)), scatter.Scattered.Direction)
		if scatter.Lobe == LobeRefract {
			currentRay = core.NewRay(hit.Point.Subtract(hit.Normal.Multiply(epsilon)), scatter.Scattered.Direction)
		}
	}

	return radiance.ClampFinite()
}

// directLight implements step 5 of the path-tracing loop: sample the sun
// disc, and if emitter sampling is enabled also sample the emitter grid,
// MIS-combining with BRDF sampling via the power heuristic.
func directLight(hit SurfaceInteraction, scatter ScatterResult, world *World, sampler core.Sampler) core.Vec3 {
	result := core.Vec3{}

	if world.Sun != nil {
		sunDir, sunPDF := world.Sun.SampleDisc(sampler.Get2D())
		cosTheta := sunDir.Dot(hit.Normal)
		if cosTheta > 0 && sunPDF > 0 {
			shadowRay := core.NewRay(hit.Point.Add(hit.Normal.Multiply(epsilon)), sunDir)
			if _, blocked := world.intersect(shadowRay, tMax); !blocked {
				brdfPDF := cosTheta / math.Pi
				misWeight := core.PowerHeuristic(1, sunPDF, 1, brdfPDF)
				brdf := evaluateDiffuseBRDF(hit)
				contribution := brdf.MultiplyVec(world.Sun.Radiance).Multiply(cosTheta * misWeight / sunPDF)
				result = result.Add(contribution)
			}
		}
	}

	if world.EmitterSampling && world.Emitters != nil && !world.Emitters.Empty() {
		dir, dist, emission, pdf, ok := world.Emitters.Sample(hit.Point, sampler.Get1D())
		if ok {
			cosTheta := dir.Dot(hit.Normal)
			if cosTheta > 0 && pdf > 0 {
				shadowRay := core.NewRay(hit.Point.Add(hit.Normal.Multiply(epsilon)), dir)
				if _, blocked := world.intersect(shadowRay, dist-epsilon); !blocked {
					brdfPDF := cosTheta / math.Pi
					misWeight := core.PowerHeuristic(1, pdf, 1, brdfPDF)
					brdf := evaluateDiffuseBRDF(hit)
					contribution := brdf.MultiplyVec(emission).Multiply(cosTheta * misWeight / pdf)
					result = result.Add(contribution)
				}
			}
		}
	}

	return result
}

func evaluateDiffuseBRDF(hit SurfaceInteraction) core.Vec3 {
	return hit.Material.Albedo.Evaluate(hit.UV, hit.Point).Multiply(1.0 / math.Pi)
}

// waterAttenuation implements exp(-waterOpacity * t * waterColor) from
// spec.md §4.3 step 3, with fixed absorption constants (opacity and
// water color) rather than values from the palette, since the palette's
// water entry carries color, not an opacity scalar.
func waterAttenuation(t float64) core.Vec3 {
	const opacity = 0.15
	waterColor := core.NewVec3(0.1, 0.3, 0.6)
	r := math.Exp(-opacity * t * waterColor.X)
	g := math.Exp(-opacity * t * waterColor.Y)
	b := math.Exp(-opacity * t * waterColor.Z)
	return core.NewVec3(r, g, b)
}

type fogScatterResult struct {
	distance        float64
	color           core.Vec3
	throughputScale core.Vec3
}

// maybeFogScatter implements spec.md §4.3's volumetric fog rule: sample a
// free-flight distance within the current segment; if it lands before the
// surface event, scatter isotropically there instead of continuing to the
// surface.
func maybeFogScatter(ray core.Ray, segmentLength float64, sky *env.Sky, sampler core.Sampler) (fogScatterResult, bool) {
	if sky == nil {
		return fogScatterResult{}, false
	}
	dist, ok := sky.FreeFlightSample(segmentLength, sampler.Get1D())
	if !ok {
		return fogScatterResult{}, false
	}
	// The continuation direction is sampled isotropically over the full
	// sphere (sampleIsotropic, pdf = 1/4pi); an isotropic phase function
	// is itself a uniform 1/4pi density, so phase/pdf cancel to 1 and the
	// throughput scale is just the fog's color.
	return fogScatterResult{
		distance:        dist,
		color:           core.Vec3{},
		throughputScale: sky.FogColor,
	}, true
}

func sampleIsotropic(sampler core.Sampler) core.Vec3 {
	return core.SampleOnUnitSphere(sampler.Get2D())
}

// PreviewShade implements spec.md §4.3's one-bounce preview shader: a
// flat NdotL term over the intersection, or the sky color on a miss.
func PreviewShade(ray core.Ray, world *World) core.Vec3 {
	hit, ok := world.intersect(ray, tMax)
	if !ok {
		return world.Sky.Emit(ray.Direction)
	}
	albedo := hit.Material.Albedo.Evaluate(hit.UV, hit.Point)
	ndotl := 0.0
	if world.Sun != nil {
		ndotl = math.Max(0, hit.Normal.Dot(world.Sun.Direction))
	}
	return albedo.Multiply(0.25 + 0.75*ndotl)
}

// Occluded reports whether ray hits any scene geometry before tLimit. It
// is the one piece of intersect the alpha-channel supersampler (outside
// this package) needs: a primary ray that escapes the scene contributes
// alpha 0, one that hits geometry contributes alpha 1.
func (w *World) Occluded(ray core.Ray, tLimit float64) bool {
	_, hit := w.intersect(ray, tLimit)
	return hit
}
