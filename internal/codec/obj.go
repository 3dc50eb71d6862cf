package codec

import (
	"bufio"
	"fmt"
	"io"

	"voxelterrain/internal/mesher"
)

// WriteOBJ writes m as a Wavefront OBJ document with one normal per vertex.
func WriteOBJ(w io.Writer, m *mesher.Mesh) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("write obj: %w", err)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d vertices, %d triangles\n", len(m.Vertices), m.TriangleCount())
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn %g %g %g\n", n[0], n[1], n[2])
	}
	for i := 0; i < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i]+1, m.Indices[i+1]+1, m.Indices[i+2]+1
		fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write obj: %w", err)
	}
	return nil
}
