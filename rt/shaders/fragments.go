package shaders

import (
	"fmt"
	"strings"

	"github.com/gekko3d/bimview/rt/core"
)

// Compose builds the WGSL program for a feature set. Fragment order:
// header, common (uniforms, IO, flag test), transform, clipping, shading, main.
func Compose(f Features) *Source {
	s := NewSource()
	s.Addf(SectionHeader, "header", "// bimview %s program, %s batching", f.Kind, f.Primitive)

	addUniforms(s, f)
	addIO(s, f)
	addPassTest(s, f)

	s.Add(SectionTransform, "transform.batching",
		"fn decode_position(p: vec4<u32>) -> vec4<f32> {",
		"    return u.decode * vec4<f32>(f32(p.x), f32(p.y), f32(p.z), 1.0);",
		"}",
	)

	if f.NumPlanes > 0 {
		addClipping(s, f)
	}
	addShading(s, f)
	addMain(s, f)
	return s
}

func addUniforms(s *Source, f Features) {
	lines := []string{
		"struct Light {",
		"    color: vec4<f32>,",
		"    dir: vec4<f32>,",
		"    pos: vec4<f32>,",
		"};",
		"",
		"struct Plane {",
		"    pos: vec4<f32>,",
		"    dir: vec4<f32>,",
		"};",
		"",
		"struct Uniforms {",
		"    view: mat4x4<f32>,",
		"    proj: mat4x4<f32>,",
		"    decode: mat4x4<f32>,",
		"    color: vec4<f32>,",
		"    ambient: vec4<f32>,",
		"    params: vec4<f32>,",
		"    params2: vec4<f32>,",
		"    pass_info: vec4<u32>,",
	}
	if n := f.numLights(); n > 0 {
		lines = append(lines, fmt.Sprintf("    lights: array<Light, %d>,", n))
	}
	if f.NumPlanes > 0 {
		lines = append(lines, fmt.Sprintf("    planes: array<Plane, %d>,", f.NumPlanes))
	}
	lines = append(lines,
		"};",
		"",
		"@group(0) @binding(0) var<uniform> u: Uniforms;",
	)
	s.Add(SectionCommon, "common.uniforms", lines...)
}

func addIO(s *Source, f Features) {
	in := []string{
		"struct VertexInput {",
		"    @location(0) position: vec4<u32>,",
	}
	if f.hasColorInput() {
		in = append(in, "    @location(1) color: vec4<f32>,")
	}
	in = append(in,
		"    @location(2) flags: u32,",
		"};",
		"",
		"struct VertexOutput {",
		"    @builtin(position) position: vec4<f32>,",
		"    @location(0) view_pos: vec4<f32>,",
		"    @location(1) local_pos: vec4<f32>,",
		"    @location(2) color: vec4<f32>,",
		"    @location(3) @interpolate(flat) clippable: u32,",
		"};",
	)
	s.Add(SectionCommon, "common.io", in...)
}

// addPassTest emits the flags sub-field test. The shift comes from the same
// constant the CPU encoder uses.
func addPassTest(s *Source, f Features) {
	s.Add(SectionCommon, "common.pass",
		fmt.Sprintf("const FLAG_SHIFT: u32 = %du;", f.Kind.Field().Shift()),
		fmt.Sprintf("const FLAG_MASK: u32 = %du;", core.FieldMask),
		fmt.Sprintf("const CLIPPABLE_BIT: u32 = %du;", core.ClippableBit),
		"",
		"fn pass_rejected(flags: u32) -> bool {",
		"    return ((flags >> FLAG_SHIFT) & FLAG_MASK) != u.pass_info.x;",
		"}",
	)
}

func addClipping(s *Source, f Features) {
	s.Add(SectionClipping, "clipping.planes",
		"fn clipped(local_pos: vec3<f32>, clippable: u32) -> bool {",
		"    if (clippable == 0u) {",
		"        return false;",
		"    }",
		fmt.Sprintf("    for (var i = 0u; i < %du; i = i + 1u) {", f.NumPlanes),
		"        let plane = u.planes[i];",
		"        if (dot(local_pos - plane.pos.xyz, plane.dir.xyz) > 0.0) {",
		"            return true;",
		"        }",
		"    }",
		"    return false;",
		"}",
	)
}

func addShading(s *Source, f Features) {
	switch f.Kind {
	case KindColor:
		if f.Primitive == core.PrimitiveTriangles {
			addLambert(s, f)
			return
		}
		s.Add(SectionShading, "shading.flat",
			"fn shade(view_pos: vec3<f32>, color: vec4<f32>) -> vec4<f32> {",
			"    return color;",
			"}",
		)
	case KindSilhouette, KindEdges:
		s.Add(SectionShading, "shading.emphasis",
			"fn shade(view_pos: vec3<f32>, color: vec4<f32>) -> vec4<f32> {",
			"    return u.color;",
			"}",
		)
	case KindEdgesColor:
		s.Add(SectionShading, "shading.edges-color",
			"fn shade(view_pos: vec3<f32>, color: vec4<f32>) -> vec4<f32> {",
			"    return vec4<f32>(color.rgb * 0.5, color.a);",
			"}",
		)
	case KindPickMesh:
		s.Add(SectionShading, "shading.pick-mesh",
			"fn shade(view_pos: vec3<f32>, color: vec4<f32>) -> vec4<f32> {",
			"    return color;",
			"}",
		)
	case KindPickDepth:
		s.Add(SectionShading, "shading.pick-depth",
			"fn pack_depth(depth: f32) -> vec4<f32> {",
			"    let bit_shift = vec4<f32>(256.0 * 256.0 * 256.0, 256.0 * 256.0, 256.0, 1.0);",
			"    let bit_mask = vec4<f32>(0.0, 1.0 / 256.0, 1.0 / 256.0, 1.0 / 256.0);",
			"    var res = fract(depth * bit_shift);",
			"    res = res - res.xxyz * bit_mask;",
			"    return res;",
			"}",
			"",
			"fn shade(view_pos: vec3<f32>, color: vec4<f32>) -> vec4<f32> {",
			"    let z = (-view_pos.z - u.params.y) / (u.params.z - u.params.y);",
			"    return pack_depth(clamp(z, 0.0, 1.0));",
			"}",
		)
	case KindOcclusion:
		s.Add(SectionShading, "shading.occlusion",
			"fn shade(view_pos: vec3<f32>, color: vec4<f32>) -> vec4<f32> {",
			"    return vec4<f32>(0.0, 0.0, 1.0, 1.0);",
			"}",
		)
	case KindSnapInit, KindSnap:
		s.Add(SectionShading, "shading.snap",
			"fn shade(view_pos: vec3<f32>, color: vec4<f32>) -> vec4<f32> {",
			"    return color;",
			"}",
		)
	}
}

// addLambert emits flat-normal diffuse lighting. Light directions and
// positions arrive in view space.
func addLambert(s *Source, f Features) {
	lines := []string{
		"fn shade(view_pos: vec3<f32>, color: vec4<f32>) -> vec4<f32> {",
		"    let normal = normalize(cross(dpdx(view_pos), dpdy(view_pos)));",
		"    var light = u.ambient.rgb;",
	}
	for i, t := range f.Lights {
		switch t {
		case core.LightDirectional:
			lines = append(lines,
				fmt.Sprintf("    light = light + u.lights[%d].color.rgb * u.lights[%d].color.a * abs(dot(normal, -u.lights[%d].dir.xyz));", i, i, i))
		case core.LightPoint:
			lines = append(lines,
				fmt.Sprintf("    let to_light_%d = normalize(u.lights[%d].pos.xyz - view_pos);", i, i),
				fmt.Sprintf("    light = light + u.lights[%d].color.rgb * u.lights[%d].color.a * abs(dot(normal, to_light_%d));", i, i, i))
		}
	}
	lines = append(lines,
		"    return vec4<f32>(color.rgb * light, color.a);",
		"}",
	)
	s.Add(SectionShading, "shading.lambert", lines...)
}

func addMain(s *Source, f Features) {
	color := "vec4<f32>(1.0, 1.0, 1.0, 1.0)"
	switch {
	case f.hasColorInput():
		color = "in.color"
	case f.Kind == KindSnapInit || f.Kind == KindSnap:
		color = "vec4<f32>(local.xyz, u.params2.y)"
	}

	vs := []string{
		"@vertex",
		"fn vs_main(in: VertexInput) -> VertexOutput {",
		"    var out: VertexOutput;",
		"    if (pass_rejected(in.flags)) {",
		"        out.position = vec4<f32>(2.0, 2.0, 2.0, 1.0);",
		"        return out;",
		"    }",
	}
	if f.FilterIntensity {
		vs = append(vs,
			"    if (in.color.a < u.params.w || in.color.a > u.params2.x) {",
			"        out.position = vec4<f32>(2.0, 2.0, 2.0, 1.0);",
			"        return out;",
			"    }",
		)
	}
	vs = append(vs,
		"    let local = decode_position(in.position);",
		"    let view_pos = u.view * local;",
		"    out.view_pos = view_pos;",
		"    out.local_pos = local;",
		"    out.position = u.proj * view_pos;",
		"    out.color = "+color+";",
		"    out.clippable = in.flags & CLIPPABLE_BIT;",
		"    return out;",
		"}",
	)
	s.Add(SectionMain, "main.vertex", vs...)

	fs := []string{
		"@fragment",
		"fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {",
	}
	if f.NumPlanes > 0 {
		fs = append(fs,
			"    if (clipped(in.local_pos.xyz, in.clippable)) {",
			"        discard;",
			"    }",
		)
	}
	fs = append(fs,
		"    return shade(in.view_pos.xyz, in.color);",
		"}",
	)
	s.Add(SectionMain, "main.fragment", strings.Join(fs, "\n"))
}
