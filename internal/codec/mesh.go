// Package codec serializes chunk meshes for storage, transport and export.
package codec

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"google.golang.org/protobuf/encoding/protowire"

	"voxelterrain/internal/mesher"
)

// Mesh message field numbers. Each repeated field is packed.
const (
	fieldVertices protowire.Number = 1 // fixed32 floats, xyz triples
	fieldIndices  protowire.Number = 2 // varints
	fieldNormals  protowire.Number = 3 // fixed32 floats, xyz triples
)

var ErrMalformedMesh = errors.New("codec: malformed mesh payload")

// MarshalMesh encodes m in protobuf wire format.
func MarshalMesh(m *mesher.Mesh) []byte {
	if m == nil {
		return nil
	}
	b := make([]byte, 0, len(m.Vertices)*24+len(m.Indices)*3+16)
	b = appendVectors(b, fieldVertices, m.Vertices)
	if len(m.Indices) > 0 {
		packed := make([]byte, 0, len(m.Indices)*3)
		for _, idx := range m.Indices {
			packed = protowire.AppendVarint(packed, uint64(idx))
		}
		b = protowire.AppendTag(b, fieldIndices, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	b = appendVectors(b, fieldNormals, m.Normals)
	return b
}

func appendVectors(b []byte, num protowire.Number, vs []mgl32.Vec3) []byte {
	if len(vs) == 0 {
		return b
	}
	packed := make([]byte, 0, len(vs)*12)
	for _, v := range vs {
		for _, c := range v {
			packed = protowire.AppendFixed32(packed, math.Float32bits(c))
		}
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// UnmarshalMesh decodes a payload produced by MarshalMesh. Unknown fields are
// skipped. The decoded mesh is checked with Mesh.Validate.
func UnmarshalMesh(data []byte) (*mesher.Mesh, error) {
	m := &mesher.Mesh{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldVertices && typ == protowire.BytesType,
			num == fieldNormals && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
			}
			data = data[n:]
			vs, err := decodeVectors(v)
			if err != nil {
				return nil, err
			}
			if num == fieldVertices {
				m.Vertices = append(m.Vertices, vs...)
			} else {
				m.Normals = append(m.Normals, vs...)
			}
		case num == fieldIndices && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
			}
			data = data[n:]
			for len(v) > 0 {
				idx, n := protowire.ConsumeVarint(v)
				if n < 0 {
					return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
				}
				if idx > math.MaxUint32 {
					return nil, fmt.Errorf("%w: index %d overflows uint32", ErrMalformedMesh, idx)
				}
				m.Indices = append(m.Indices, uint32(idx))
				v = v[n:]
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, err)
	}
	return m, nil
}

func decodeVectors(b []byte) ([]mgl32.Vec3, error) {
	if len(b)%12 != 0 {
		return nil, fmt.Errorf("%w: vector payload of %d bytes", ErrMalformedMesh, len(b))
	}
	vs := make([]mgl32.Vec3, 0, len(b)/12)
	for len(b) > 0 {
		var v mgl32.Vec3
		for i := range v {
			bits, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, protowire.ParseError(n))
			}
			v[i] = math.Float32frombits(bits)
			b = b[n:]
		}
		vs = append(vs, v)
	}
	return vs, nil
}
