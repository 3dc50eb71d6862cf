package network

import (
	"encoding/json"
	"time"

	"voxelterrain/internal/mesher"
	"voxelterrain/internal/noise"
)

type MessageType string

const (
	MessageGenerate MessageType = "generate"
	MessageReseed   MessageType = "reseed"
	MessageEvict    MessageType = "evict"
	MessageMesh     MessageType = "mesh"
	MessageEvicted  MessageType = "evicted"
	MessageError    MessageType = "error"
)

// Envelope frames every websocket message. Replies echo the seq of the
// request they answer.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload"`
}

// GenerateRequest overrides parts of the server's current chunk parameters.
// Nil fields keep the current value.
type GenerateRequest struct {
	Seed          *int64             `json:"seed,omitempty"`
	Chunk         *mesher.Dimensions `json:"chunk,omitempty"`
	UnitVoxelSize *int               `json:"unitVoxelSize,omitempty"`
	IsoLevel      *float32           `json:"isoLevel,omitempty"`
	FloorOffset   *float32           `json:"floorOffset,omitempty"`
	Octaves       []noise.Octave     `json:"octaves,omitempty"`
	UseMidpoint   *bool              `json:"useMidpoint,omitempty"`
	// Fresh skips the mesh store and rebuilds.
	Fresh bool `json:"fresh,omitempty"`
}

// apply returns p with the request's overrides.
func (r GenerateRequest) apply(p mesher.Params) mesher.Params {
	if r.Seed != nil {
		p.Seed = *r.Seed
	}
	if r.Chunk != nil {
		p.Chunk = *r.Chunk
	}
	if r.UnitVoxelSize != nil {
		p.UnitVoxelSize = *r.UnitVoxelSize
	}
	if r.IsoLevel != nil {
		p.IsoLevel = *r.IsoLevel
	}
	if r.FloorOffset != nil {
		p.FloorOffset = *r.FloorOffset
	}
	if r.Octaves != nil {
		p.Octaves = append([]noise.Octave(nil), r.Octaves...)
	}
	if r.UseMidpoint != nil {
		p.UseMidpoint = *r.UseMidpoint
	}
	return p
}

// EvictRequest names a chunk the same way GenerateRequest does and drops its
// stored mesh.
type EvictRequest = GenerateRequest

type EvictedReply struct {
	Key string `json:"key"`
}

// ReseedRequest replaces the server's seed and rebuilds its chunk.
type ReseedRequest struct {
	Seed int64 `json:"seed"`
}

// MeshReply summarizes a mesh and carries its protobuf wire encoding.
type MeshReply struct {
	Key       string     `json:"key"`
	Seed      int64      `json:"seed"`
	Vertices  int        `json:"vertices"`
	Triangles int        `json:"triangles"`
	BoundsMin [3]float32 `json:"boundsMin"`
	BoundsMax [3]float32 `json:"boundsMax"`
	Mesh      []byte     `json:"mesh"`
}

// Error codes carried by ErrorReply.
const (
	CodeBadRequest           = "badRequest"
	CodeInvalidConfiguration = "invalidConfiguration"
	CodeTooManyVertices      = "tooManyVertices"
	CodeInternal             = "internal"
)

type ErrorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Encode(msg Envelope) ([]byte, error) {
	return json.Marshal(msg)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
