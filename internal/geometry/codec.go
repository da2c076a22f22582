package geometry

import (
	"encoding/json"
	"fmt"
)

// Decode parses a wire message into a validated Update.
//
// The message must be a JSON object. A "line" modelType decodes as Lines.
// "mesh" decodes as Mesh, and so does a missing, non-string or unrecognized
// modelType unless policy is Reject.
func Decode(data []byte, policy UnknownKindPolicy) (Update, error) {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// null unmarshals into a nil map without error.
	if env == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}

	kind, known := env.kind()
	if !known && policy == Reject {
		return nil, fmt.Errorf("%w: modelType %s", ErrUnknownKind, env.modelType())
	}

	var u Update
	switch kind {
	case KindLine:
		var l Lines
		if err := env.field("lines", &l.Polylines); err != nil {
			return nil, err
		}
		u = l
	default:
		var m Mesh
		if err := env.field("vertices", &m.Vertices); err != nil {
			return nil, err
		}
		if err := env.field("indices", &m.Indices); err != nil {
			return nil, err
		}
		u = m
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Encode marshals an Update to its wire form.
func Encode(u Update) ([]byte, error) {
	switch v := u.(type) {
	case Mesh:
		return json.Marshal(meshWire{
			ModelType: string(KindMesh),
			Vertices:  nonNil(v.Vertices),
			Indices:   nonNilIdx(v.Indices),
		})
	case Lines:
		lines := v.Polylines
		if lines == nil {
			lines = [][]float32{}
		}
		return json.Marshal(lineWire{
			ModelType: string(KindLine),
			Lines:     lines,
		})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, u)
	}
}

func nonNil(v []float32) []float32 {
	if v == nil {
		return []float32{}
	}
	return v
}

func nonNilIdx(v []uint32) []uint32 {
	if v == nil {
		return []uint32{}
	}
	return v
}
