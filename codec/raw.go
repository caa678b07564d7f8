package codec

import "fmt"

// Raw is an identity codec for []byte and string values. Unmarshal accepts
// *[]byte, *string or *any (which receives a copy of the bytes).
type Raw struct{}

func (Raw) Marshal(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("codec: raw cannot marshal %T", v)
	}
}

func (Raw) Unmarshal(b []byte, dst any) error {
	switch d := dst.(type) {
	case *[]byte:
		*d = append([]byte(nil), b...)
	case *string:
		*d = string(b)
	case *any:
		*d = append([]byte(nil), b...)
	default:
		return fmt.Errorf("codec: raw cannot unmarshal into %T", dst)
	}
	return nil
}
