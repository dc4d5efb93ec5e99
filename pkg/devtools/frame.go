package devtools

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Frame types.
const (
	FrameSnapshot = "snapshot"
	FrameUpdate   = "update"
)

// Encodings.
const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// Frame is a state message sent to stream clients and returned by GET /state.
type Frame struct {
	Type    string `json:"type,omitempty"`
	Store   string `json:"store"`
	Client  string `json:"client,omitempty"`
	Version uint64 `json:"version"`
	State   any    `json:"state"`
}

// frameEncMode encodes frames deterministically.
var frameEncMode cbor.EncMode

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	frameEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create devtools CBOR encoder mode: %v", err))
	}
}

// encodeFrame encodes f as JSON or CBOR.
func encodeFrame(f Frame, encoding string) ([]byte, error) {
	if encoding == EncodingCBOR {
		return frameEncMode.Marshal(f)
	}
	return json.Marshal(f)
}
