package cfg

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Marshal encodes info with msgpack.
func (c *CFGInfo) Marshal() ([]byte, error) {
	data, err := msgpack.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph %s: %w", c.Name, err)
	}
	return data, nil
}

// Unmarshal decodes a msgpack-encoded CFGInfo.
func Unmarshal(data []byte) (*CFGInfo, error) {
	var c CFGInfo
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return &c, nil
}

// WriteJSON writes info as indented JSON.
func (c *CFGInfo) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// ReadJSON reads a CFGInfo written by WriteJSON.
func ReadJSON(r io.Reader) (*CFGInfo, error) {
	var c CFGInfo
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return &c, nil
}
