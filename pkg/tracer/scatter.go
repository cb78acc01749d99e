package tracer

import (
	"math"

	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/material"
)

// SurfaceInteraction is an alias of material.SurfaceInteraction, kept here
// so existing unqualified references throughout this package still resolve.
type SurfaceInteraction = material.SurfaceInteraction

// Scatter implements the Fresnel-blend shading model: pick diffuse-Lambert,
// specular reflection, or refraction according to the material's IOR,
// Specular weight and Roughness, importance-sample the selected lobe, and
// return its attenuation/PDF.
func Scatter(rayIn core.Ray, hit SurfaceInteraction, sampler core.Sampler) (ScatterResult, bool) {
	mat := hit.Material
	if mat.IOR > 1.0 {
		// Dielectric-capable material (glass, water, ...): blend reflection
		// and refraction by the angle-dependent Fresnel term.
		return scatterDielectric(rayIn, hit, sampler)
	}

	specProb := fresnelWeight(mat.Specular, math.Max(0, -rayIn.Direction.Normalize().Dot(hit.Normal)), 1.0)
	if sampler.Get1D() < specProb {
		return scatterSpecular(rayIn, hit, sampler)
	}
	return scatterDiffuse(rayIn, hit, sampler)
}

func scatterDiffuse(rayIn core.Ray, hit SurfaceInteraction, sampler core.Sampler) (ScatterResult, bool) {
	direction := core.SampleCosineHemisphere(hit.Normal, sampler.Get2D())
	scattered := core.NewRay(hit.Point, direction)

	cosTheta := math.Max(0, direction.Normalize().Dot(hit.Normal))
	pdf := cosTheta / math.Pi

	albedo := hit.Material.Albedo.Evaluate(hit.UV, hit.Point)
	attenuation := albedo.Multiply(1.0 / math.Pi)

	return ScatterResult{Scattered: scattered, Attenuation: attenuation, PDF: pdf, Lobe: LobeDiffuse}, true
}

func scatterSpecular(rayIn core.Ray, hit SurfaceInteraction, sampler core.Sampler) (ScatterResult, bool) {
	reflected := reflectVector(rayIn.Direction.Normalize(), hit.Normal)

	if hit.Material.Roughness > 0 {
		fuzz := core.SampleCosineHemisphere(hit.Normal, sampler.Get2D()).Multiply(float64(hit.Material.Roughness))
		reflected = reflected.Add(fuzz).Normalize()
	}

	scattered := core.NewRay(hit.Point, reflected)
	if scattered.Direction.Dot(hit.Normal) <= 0 {
		return ScatterResult{}, false
	}

	albedo := hit.Material.Albedo.Evaluate(hit.UV, hit.Point)
	return ScatterResult{Scattered: scattered, Attenuation: albedo, PDF: 0, Lobe: LobeSpecular}, true
}

func scatterDielectric(rayIn core.Ray, hit SurfaceInteraction, sampler core.Sampler) (ScatterResult, bool) {
	ior := float64(hit.Material.IOR)
	var refractionRatio float64
	if hit.FrontFace {
		refractionRatio = 1.0 / ior
	} else {
		refractionRatio = ior
	}

	unitDirection := rayIn.Direction.Normalize()
	cosTheta := math.Min(-unitDirection.Dot(hit.Normal), 1.0)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))

	cannotRefract := refractionRatio*sinTheta > 1.0
	lobe := LobeRefract
	var direction core.Vec3
	if cannotRefract || schlickReflectance(cosTheta, refractionRatio) > sampler.Get1D() {
		direction = reflectVector(unitDirection, hit.Normal)
		lobe = LobeSpecular
	} else {
		direction = refractVector(unitDirection, hit.Normal, refractionRatio)
	}

	scattered := core.NewRay(hit.Point, direction)
	return ScatterResult{Scattered: scattered, Attenuation: core.NewVec3(1, 1, 1), PDF: 0, Lobe: lobe}, true
}
