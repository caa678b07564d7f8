package codec

import "encoding/json"

type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)     { return json.Marshal(v) }
func (JSON) Unmarshal(b []byte, dst any) error { return json.Unmarshal(b, dst) }
