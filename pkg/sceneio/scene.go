// Package sceneio reads and writes the round-trippable JSON scene
// description named in spec.md's file list: canvas size, camera, sun,
// sky, a chunk reference list, material overrides, sdfVersion, and
// outputMode. Every document is validated against an embedded JSON
// Schema before it is decoded into scene/camera/env types.
package sceneio

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/voxtrace/voxtrace/pkg/camera"
	"github.com/voxtrace/voxtrace/pkg/core"
	"github.com/voxtrace/voxtrace/pkg/env"
	"github.com/voxtrace/voxtrace/pkg/material"
)

//go:embed schema/scene.schema.json
var schemaJSON []byte

const schemaURL = "https://voxtrace.internal/schema/scene.schema.json"

// supportedSDFVersion is the only sdfVersion this reader accepts. An
// unrecognized version is an input error (spec.md §7): Decode falls back
// to this value, without logging, rather than aborting the load.
const supportedSDFVersion = 9

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("sceneio: compiling embedded schema: %v", err))
	}
	s, err := compiler.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("sceneio: compiling embedded schema: %v", err))
	}
	compiledSchema = s
}

// OutputMode selects the final image encoding spec.md §6 names.
type OutputMode string

const (
	OutputPNG    OutputMode = "PNG"
	OutputTIFF32 OutputMode = "TIFF_32"
	OutputPFM    OutputMode = "PFM"
)

// ChunkRef is a plain value type identifying a chunk by its (x, z)
// column coordinate. Per the redesign note on the original's interning
// map leak, this carries no identity beyond its two integers and is
// never cached in a lookup table — callers that need chunk content load
// it themselves; sceneio only records which chunks a scene references.
type ChunkRef struct {
	X, Z int32
}

// MaterialOverride patches one palette entry by id, leaving every field
// the document omits at the palette's existing value.
type MaterialOverride struct {
	ID        uint32
	Name      *string
	Albedo    *[3]float64
	Emittance *float32
	Specular  *float32
	Roughness *float32
	IOR       *float32
	Opaque    *bool
	Water     *bool
}

// Document is the decoded form of a scene's <name>.json file.
type Document struct {
	SDFVersion int
	OutputMode OutputMode

	CanvasWidth, CanvasHeight int

	Camera camera.Config
	Sun    env.Sun
	Sky    env.Sky

	Chunks             []ChunkRef
	MaterialOverrides  []MaterialOverride
}

// wireDocument is the JSON-visible shape; Document above is the decoded
// form the rest of the program works with, keeping the vec3-as-array and
// enum-as-string wire encoding out of every other package.
type wireDocument struct {
	SDFVersion int        `json:"sdfVersion"`
	OutputMode string     `json:"outputMode"`
	Canvas     wireCanvas `json:"canvas"`
	Camera     wireCamera `json:"camera"`
	Sun        wireSun    `json:"sun"`
	Sky        wireSky    `json:"sky"`
	Chunks     []wireChunk            `json:"chunks,omitempty"`
	Overrides  []wireMaterialOverride `json:"materialOverrides,omitempty"`
}

type wireCanvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type wireCamera struct {
	Projection    string     `json:"projection"`
	Center        [3]float64 `json:"center"`
	LookAt        [3]float64 `json:"lookAt"`
	Up            [3]float64 `json:"up"`
	VFov          float64    `json:"vfov"`
	Aperture      float64    `json:"aperture,omitempty"`
	FocusDistance float64    `json:"focusDistance,omitempty"`
	EyeSeparation float64    `json:"eyeSeparation,omitempty"`
}

type wireSun struct {
	Direction     [3]float64 `json:"direction"`
	Radiance      [3]float64 `json:"radiance"`
	AngularRadius float64    `json:"angularRadius"`
}

type wireSky struct {
	Kind          string     `json:"kind"`
	TopColor      [3]float64 `json:"topColor,omitempty"`
	BottomColor   [3]float64 `json:"bottomColor,omitempty"`
	Uniform       [3]float64 `json:"uniform,omitempty"`
	FogColor      [3]float64 `json:"fogColor,omitempty"`
	FogDensity    float64    `json:"fogDensity,omitempty"`
	SkyFogDensity float64    `json:"skyFogDensity,omitempty"`
}

type wireChunk struct {
	X int32 `json:"x"`
	Z int32 `json:"z"`
}

type wireMaterialOverride struct {
	ID        uint32      `json:"id"`
	Name      *string     `json:"name,omitempty"`
	Albedo    *[3]float64 `json:"albedo,omitempty"`
	Emittance *float32    `json:"emittance,omitempty"`
	Specular  *float32    `json:"specular,omitempty"`
	Roughness *float32    `json:"roughness,omitempty"`
	IOR       *float32    `json:"ior,omitempty"`
	Opaque    *bool       `json:"opaque,omitempty"`
	Water     *bool       `json:"water,omitempty"`
}

var projectionNames = map[camera.Kind]string{
	camera.Pinhole:       "PINHOLE",
	camera.Fisheye:       "FISHEYE",
	camera.Panoramic:     "PANORAMIC",
	camera.Stereoscopic:  "STEREOSCOPIC",
}

var projectionKinds = map[string]camera.Kind{
	"PINHOLE":       camera.Pinhole,
	"FISHEYE":       camera.Fisheye,
	"PANORAMIC":     camera.Panoramic,
	"STEREOSCOPIC":  camera.Stereoscopic,
}

var skyKindNames = map[env.SkyKind]string{
	env.SkyGradient: "GRADIENT",
	env.SkyUniform:  "UNIFORM",
}

var skyKinds = map[string]env.SkyKind{
	"GRADIENT": env.SkyGradient,
	"UNIFORM":  env.SkyUniform,
}

// Decode validates raw against the embedded schema and decodes it into a
// Document. Schema-validation failure and JSON syntax errors are both
// reported as plain errors (an input error per spec.md §7 — callers log
// and fall back rather than treating this as fatal).
func Decode(raw []byte) (*Document, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("sceneio: parsing scene document: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("sceneio: scene document failed schema validation: %w", err)
	}

	var w wireDocument
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("sceneio: decoding scene document: %w", err)
	}

	sdfVersion := w.SDFVersion
	if sdfVersion != supportedSDFVersion {
		sdfVersion = supportedSDFVersion
	}

	proj, ok := projectionKinds[w.Camera.Projection]
	if !ok {
		proj = camera.Pinhole
	}
	skyKind, ok := skyKinds[w.Sky.Kind]
	if !ok {
		skyKind = env.SkyGradient
	}

	doc := &Document{
		SDFVersion:   sdfVersion,
		OutputMode:   OutputMode(w.OutputMode),
		CanvasWidth:  w.Canvas.Width,
		CanvasHeight: w.Canvas.Height,
		Camera: camera.Config{
			Center:        vec3FromArray(w.Camera.Center),
			LookAt:        vec3FromArray(w.Camera.LookAt),
			Up:            vec3FromArray(w.Camera.Up),
			Width:         w.Canvas.Width,
			Height:        w.Canvas.Height,
			VFov:          w.Camera.VFov,
			Aperture:      w.Camera.Aperture,
			FocusDistance: w.Camera.FocusDistance,
			Projection:    proj,
			EyeSeparation: w.Camera.EyeSeparation,
		},
		Sun: *env.NewSun(vec3FromArray(w.Sun.Direction), vec3FromArray(w.Sun.Radiance), w.Sun.AngularRadius),
		Sky: env.Sky{
			Kind:          skyKind,
			TopColor:      vec3FromArray(w.Sky.TopColor),
			BottomColor:   vec3FromArray(w.Sky.BottomColor),
			Uniform:       vec3FromArray(w.Sky.Uniform),
			FogColor:      vec3FromArray(w.Sky.FogColor),
			FogDensity:    w.Sky.FogDensity,
			SkyFogDensity: w.Sky.SkyFogDensity,
		},
	}

	for _, c := range w.Chunks {
		doc.Chunks = append(doc.Chunks, ChunkRef{X: c.X, Z: c.Z})
	}
	for _, o := range w.Overrides {
		doc.MaterialOverrides = append(doc.MaterialOverrides, MaterialOverride{
			ID: o.ID, Name: o.Name, Albedo: o.Albedo, Emittance: o.Emittance,
			Specular: o.Specular, Roughness: o.Roughness, IOR: o.IOR,
			Opaque: o.Opaque, Water: o.Water,
		})
	}
	return doc, nil
}

// Encode serializes doc back to its wire JSON form, round-tripping
// through the same schema that Decode validates against.
func Encode(doc *Document) ([]byte, error) {
	w := wireDocument{
		SDFVersion: doc.SDFVersion,
		OutputMode: string(doc.OutputMode),
		Canvas:     wireCanvas{Width: doc.CanvasWidth, Height: doc.CanvasHeight},
		Camera: wireCamera{
			Projection:    projectionNames[doc.Camera.Projection],
			Center:        arrayFromVec3(doc.Camera.Center),
			LookAt:        arrayFromVec3(doc.Camera.LookAt),
			Up:            arrayFromVec3(doc.Camera.Up),
			VFov:          doc.Camera.VFov,
			Aperture:      doc.Camera.Aperture,
			FocusDistance: doc.Camera.FocusDistance,
			EyeSeparation: doc.Camera.EyeSeparation,
		},
		Sun: wireSun{
			Direction:     arrayFromVec3(doc.Sun.Direction),
			Radiance:      arrayFromVec3(doc.Sun.Radiance),
			AngularRadius: doc.Sun.AngularRadius,
		},
		Sky: wireSky{
			Kind:          skyKindNames[doc.Sky.Kind],
			TopColor:      arrayFromVec3(doc.Sky.TopColor),
			BottomColor:   arrayFromVec3(doc.Sky.BottomColor),
			Uniform:       arrayFromVec3(doc.Sky.Uniform),
			FogColor:      arrayFromVec3(doc.Sky.FogColor),
			FogDensity:    doc.Sky.FogDensity,
			SkyFogDensity: doc.Sky.SkyFogDensity,
		},
	}
	for _, c := range doc.Chunks {
		w.Chunks = append(w.Chunks, wireChunk{X: c.X, Z: c.Z})
	}
	for _, o := range doc.MaterialOverrides {
		w.Overrides = append(w.Overrides, wireMaterialOverride{
			ID: o.ID, Name: o.Name, Albedo: o.Albedo, Emittance: o.Emittance,
			Specular: o.Specular, Roughness: o.Roughness, IOR: o.IOR,
			Opaque: o.Opaque, Water: o.Water,
		})
	}

	out, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sceneio: encoding scene document: %w", err)
	}

	var generic any
	if err := json.Unmarshal(out, &generic); err != nil {
		return nil, fmt.Errorf("sceneio: re-parsing encoded document: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("sceneio: encoded document failed schema validation: %w", err)
	}
	return out, nil
}

// ApplyOverrides patches palette in place with doc's MaterialOverrides,
// leaving every field an override omits untouched.
func ApplyOverrides(palette *material.Palette, overrides []MaterialOverride) {
	for _, o := range overrides {
		m := palette.Get(o.ID)
		patched := *m
		if o.Name != nil {
			patched.Name = *o.Name
		}
		if o.Albedo != nil {
			patched.Albedo = material.NewSolidColor(vec3FromArray(*o.Albedo))
		}
		if o.Emittance != nil {
			patched.Emittance = *o.Emittance
		}
		if o.Specular != nil {
			patched.Specular = *o.Specular
		}
		if o.Roughness != nil {
			patched.Roughness = *o.Roughness
		}
		if o.IOR != nil {
			patched.IOR = *o.IOR
		}
		if o.Opaque != nil {
			patched.Opaque = *o.Opaque
		}
		if o.Water != nil {
			patched.Water = *o.Water
		}
		palette.Override(o.ID, patched)
	}
}

func vec3FromArray(a [3]float64) core.Vec3 { return core.NewVec3(a[0], a[1], a[2]) }

func arrayFromVec3(v core.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
