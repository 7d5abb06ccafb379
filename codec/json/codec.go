package json

import (
	"bytes"
	"encoding/json"
	"io"
)

// MarshalJson decodes strictly: a blob carrying unknown fields is rejected.
type MarshalJson struct{}

func (m *MarshalJson) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (m *MarshalJson) Unmarshal(data []byte, v interface{}) error {
	return newStrictDecoder(bytes.NewReader(data)).Decode(v)
}

func newStrictDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec
}

// EncoderJson writes one JSON document per line.
type EncoderJson struct {
	enc *json.Encoder
}

func NewEncoderJson(w io.Writer) *EncoderJson {
	e := &EncoderJson{}
	e.Reset(w)
	return e
}

func (e *EncoderJson) Encode(v interface{}) error {
	return e.enc.Encode(v)
}

func (e *EncoderJson) Reset(w io.Writer) {
	e.enc = json.NewEncoder(w)
	e.enc.SetEscapeHTML(false)
}

// DecoderJson reads a stream of JSON documents with the same strictness as MarshalJson.
type DecoderJson struct {
	dec *json.Decoder
}

func NewDecoderJson(r io.Reader) *DecoderJson {
	d := &DecoderJson{}
	d.Reset(r)
	return d
}

func (d *DecoderJson) Decode(v interface{}) error {
	return d.dec.Decode(v)
}

func (d *DecoderJson) Reset(r io.Reader) {
	d.dec = newStrictDecoder(r)
}
