package mesher

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is a finished chunk surface: deduplicated vertex positions, triangle
// indices into Vertices (three per triangle) and one normal per vertex.
type Mesh struct {
	Vertices []mgl32.Vec3
	Indices  []uint32
	Normals  []mgl32.Vec3
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	if m == nil {
		return 0
	}
	return len(m.Indices) / 3
}

// Bounds returns the axis-aligned bounding box of the vertices. An empty mesh
// reports zero bounds.
func (m *Mesh) Bounds() (min, max mgl32.Vec3) {
	if m == nil || len(m.Vertices) == 0 {
		return min, max
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	return min, max
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	clone := &Mesh{}
	if len(m.Vertices) > 0 {
		clone.Vertices = make([]mgl32.Vec3, len(m.Vertices))
		copy(clone.Vertices, m.Vertices)
	}
	if len(m.Indices) > 0 {
		clone.Indices = make([]uint32, len(m.Indices))
		copy(clone.Indices, m.Indices)
	}
	if len(m.Normals) > 0 {
		clone.Normals = make([]mgl32.Vec3, len(m.Normals))
		copy(clone.Normals, m.Normals)
	}
	return clone
}

// Validate checks index bounds and buffer lengths.
func (m *Mesh) Validate() error {
	if m == nil {
		return fmt.Errorf("mesh is nil")
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(m.Indices))
	}
	if len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("normal count %d does not match vertex count %d", len(m.Normals), len(m.Vertices))
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return fmt.Errorf("index %d at %d out of range for %d vertices", idx, i, len(m.Vertices))
		}
	}
	return nil
}

// recalculateNormals averages the unit face normals of every triangle sharing
// a vertex. Vertices touched only by degenerate triangles point straight up.
func recalculateNormals(vertices []mgl32.Vec3, indices []uint32) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		va, vb, vc := vertices[a], vertices[b], vertices[c]
		face := vb.Sub(va).Cross(vc.Sub(va))
		if face.Len() == 0 {
			continue
		}
		face = face.Normalize()
		normals[a] = normals[a].Add(face)
		normals[b] = normals[b].Add(face)
		normals[c] = normals[c].Add(face)
	}
	for i, n := range normals {
		if n.Len() == 0 {
			normals[i] = mgl32.Vec3{0, 1, 0}
			continue
		}
		normals[i] = n.Normalize()
	}
	return normals
}
