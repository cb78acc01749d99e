package tracer

import (
	"math"

	"github.com/voxtrace/voxtrace/pkg/core"
)

// Lobe identifies which BRDF lobe a scatter event sampled. Materials in
// this renderer are a single property sheet rather than separate Go types
// (see DESIGN.md) — a Fresnel blend driven by that sheet picks one of
// these three lobes per scatter event.
type Lobe int

const (
	LobeDiffuse Lobe = iota
	LobeSpecular
	LobeRefract
)

// ScatterResult carries a sampled direction, its color attenuation, and
// the PDF under which it was drawn (0 for delta lobes).
type ScatterResult struct {
	Scattered   core.Ray
	Attenuation core.Vec3
	PDF         float64
	Lobe        Lobe
}

// IsSpecular reports whether this is a delta-function (specular/refractive)
// scatter, which carries no PDF and cannot be hit by light sampling.
func (s ScatterResult) IsSpecular() bool { return s.Lobe != LobeDiffuse }

// reflectVector reflects v off a surface with normal n.
func reflectVector(v, n core.Vec3) core.Vec3 {
	return v.Subtract(n.Multiply(2 * v.Dot(n)))
}

// refractVector refracts uv through a surface with normal n using Snell's
// law, given the ratio of indices of refraction etaiOverEtat.
func refractVector(uv, n core.Vec3, etaiOverEtat float64) core.Vec3 {
	cosTheta := math.Min(-uv.Dot(n), 1.0)
	rOutPerp := uv.Add(n.Multiply(cosTheta)).Multiply(etaiOverEtat)
	rOutParallel := n.Multiply(-math.Sqrt(math.Abs(1.0 - rOutPerp.LengthSquared())))
	return rOutPerp.Add(rOutParallel)
}

// schlickReflectance approximates Fresnel reflectance via Schlick's
// approximation, given the cosine of the incident angle and the ratio of
// indices of refraction.
func schlickReflectance(cosine, refractionRatio float64) float64 {
	r0 := (1 - refractionRatio) / (1 + refractionRatio)
	r0 = r0 * r0
	return r0 + (1-r0)*math.Pow(1-cosine, 5)
}

// fresnelWeight returns the probability of taking the specular/refractive
// lobe over diffuse, blending the material's explicit Specular weight with
// the angle-dependent Schlick term so that grazing angles on rough
// dielectrics still pick up a highlight.
func fresnelWeight(specular float32, cosTheta, refractionRatio float64) float64 {
	schlick := schlickReflectance(cosTheta, refractionRatio)
	base := float64(specular)
	return math.Min(1.0, base+(1-base)*schlick)
}
