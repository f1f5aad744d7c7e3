package store

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// Codec transforms the serialised store before it is written to disk and after it is read back
type Codec interface {
	Encode(plain []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// PlainCodec stores the JSON document as is
type PlainCodec struct{}

func (PlainCodec) Encode(plain []byte) ([]byte, error) { return plain, nil }
func (PlainCodec) Decode(data []byte) ([]byte, error)  { return data, nil }

// ObfuscatedCodec XORs the document with a repeating key and base64 encodes the result.  It only keeps the file from
// being casually readable and is not a security boundary.
type ObfuscatedCodec struct {
	key []byte
}

// NewObfuscatedCodec creates an ObfuscatedCodec.  The key must not be empty.
func NewObfuscatedCodec(key string) (*ObfuscatedCodec, error) {
	if key == "" {
		return nil, errors.New("obfuscation key is empty")
	}
	return &ObfuscatedCodec{key: []byte(key)}, nil
}

func (c *ObfuscatedCodec) Encode(plain []byte) ([]byte, error) {
	xored := c.xor(plain)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(xored)))
	base64.StdEncoding.Encode(out, xored)
	return out, nil
}

func (c *ObfuscatedCodec) Decode(data []byte) ([]byte, error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(raw, data)
	if err != nil {
		return nil, fmt.Errorf("decoding obfuscated store: %w", err)
	}
	return c.xor(raw[:n]), nil
}

func (c *ObfuscatedCodec) xor(in []byte) []byte {
	out := make([]byte, len(in))
	for i, b := range in {
		out[i] = b ^ c.key[i%len(c.key)]
	}
	return out
}

// CodecByName returns the codec for a configured name.  Unknown names fall back to the obfuscated codec.
func CodecByName(name, key string) (Codec, error) {
	switch name {
	case "json", "plain":
		return PlainCodec{}, nil
	default:
		return NewObfuscatedCodec(key)
	}
}
