// Package codec implements the record codecs used to persist cache records.
package codec

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// JSONName selects the JSON codec.
	JSONName = "json"
	// CBORName selects the deterministic CBOR codec.
	CBORName = "cbor"
)

var (
	_ ports.Codec = JSON{}
	_ ports.Codec = (*CBOR)(nil)
)

// New returns the codec registered under name. An empty name selects JSON.
func New(name string) (ports.Codec, error) {
	switch name {
	case "", JSONName:
		return JSON{}, nil
	case CBORName:
		return NewCBOR()
	default:
		return nil, zerr.With(domain.ErrUnknownCodec, "codec", name)
	}
}

// JSON encodes records as compact JSON. Unknown fields are ignored on decode.
type JSON struct{}

// Name returns "json".
func (JSON) Name() string { return JSONName }

// Marshal encodes v.
func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes data into v.
func (JSON) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	return dec.Decode(v)
}

// CBOR encodes records with Core Deterministic Encoding, so equal records always
// produce equal bytes and therefore equal content hashes.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR builds the CBOR codec.
func NewCBOR() (*CBOR, error) {
	encOptions := cbor.CoreDetEncOptions()
	// Content hashes carry unexported fields and serialize through MarshalText.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encOptions.Time = cbor.TimeRFC3339Nano
	enc, err := encOptions.EncMode()
	if err != nil {
		return nil, zerr.Wrap(err, "cbor encoder initialization failed")
	}

	dec, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		return nil, zerr.Wrap(err, "cbor decoder initialization failed")
	}

	return &CBOR{enc: enc, dec: dec}, nil
}

// Name returns "cbor".
func (c *CBOR) Name() string { return CBORName }

// Marshal encodes v.
func (c *CBOR) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal decodes data into v.
func (c *CBOR) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
