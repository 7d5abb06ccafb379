package codec

import (
	"fmt"
	"io"

	"github.com/TopiaNetwork/topia-wallet/codec/json"
)

type CodecType byte

const (
	CodecType_Unknown CodecType = iota
	CodecType_JSON
)

func (t CodecType) String() string {
	switch t {
	case CodecType_JSON:
		return "json"
	default:
		return fmt.Sprintf("codec(%d)", byte(t))
	}
}

// Marshaler serializes wallet records and session entries.
type Marshaler interface {
	Marshal(interface{}) ([]byte, error)

	Unmarshal([]byte, interface{}) error
}

// Encoder and Decoder work on streams such as HTTP bodies.
type Encoder interface {
	Encode(interface{}) error
	Reset(w io.Writer)
}

type Decoder interface {
	Decode(interface{}) error
	Reset(r io.Reader)
}

// The Create* constructors panic on an unknown type: codec types are fixed at build time.

func CreateMarshaler(codecType CodecType) Marshaler {
	if codecType != CodecType_JSON {
		panic(fmt.Sprintf("CreateMarshaler: unsupported codec %s", codecType))
	}
	return &json.MarshalJson{}
}

func CreateEncoder(codecType CodecType, w io.Writer) Encoder {
	if codecType != CodecType_JSON {
		panic(fmt.Sprintf("CreateEncoder: unsupported codec %s", codecType))
	}
	return json.NewEncoderJson(w)
}

func CreateDecoder(codecType CodecType, r io.Reader) Decoder {
	if codecType != CodecType_JSON {
		panic(fmt.Sprintf("CreateDecoder: unsupported codec %s", codecType))
	}
	return json.NewDecoderJson(r)
}
