package json

import (
	"bytes"
	"encoding/json"
)

// Marshal marshals v to JSON without escaping &, <, and >.
func Marshal(v interface{}) ([]byte, error) {
	return Marshal2(v, false)
}

// Marshal2 marshals v with configurable HTML escaping. json.Encoder appends
// a newline after each value; it is trimmed so the output matches
// json.Marshal byte for byte.
func Marshal2(v interface{}, escapeHTML bool) ([]byte, error) {
	var byteBuf bytes.Buffer
	encoder := json.NewEncoder(&byteBuf)
	encoder.SetEscapeHTML(escapeHTML)
	err := encoder.Encode(v)
	if err == nil && byteBuf.Len() > 0 {
		return byteBuf.Bytes()[:byteBuf.Len()-1], err
	}
	return byteBuf.Bytes(), err
}

// Unmarshal parses JSON data into m.
func Unmarshal(b []byte, m interface{}) error {
	return json.Unmarshal(b, m)
}
