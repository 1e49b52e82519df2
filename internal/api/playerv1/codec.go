package playerv1

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Codec encodes messages as JSON. It replaces the built-in protobuf JSON codec,
// which only accepts generated messages.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string {
	return "json"
}

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal %T", msg)
	}
	return data, nil
}

// Unmarshal implements connect.Codec. An empty body leaves msg unchanged.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrapf(err, "failed to unmarshal %T", msg)
	}
	return nil
}
