package fixture

import (
	"fmt"
	"net/http"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Shared codecs. zstd.Encoder and zstd.Decoder are safe for concurrent use
// through EncodeAll and DecodeAll.
var (
	headerEncMode cbor.EncMode
	headerDecMode cbor.DecMode
	bodyEncoder   *zstd.Encoder
	bodyDecoder   *zstd.Decoder
)

func init() {
	var err error
	headerEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("fixture: CBOR encoder initialization failed: " + err.Error())
	}
	headerDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("fixture: CBOR decoder initialization failed: " + err.Error())
	}
	bodyEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("fixture: zstd encoder initialization failed: " + err.Error())
	}
	bodyDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("fixture: zstd decoder initialization failed: " + err.Error())
	}
}

// encodeHeader encodes h deterministically: map keys are sorted, so equal
// headers always produce equal bytes.
func encodeHeader(h http.Header) ([]byte, error) {
	m := map[string][]string(h)
	if m == nil {
		m = map[string][]string{}
	}
	data, err := headerEncMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode headers: %w", err)
	}
	return data, nil
}

func decodeHeader(data []byte) (http.Header, error) {
	var m map[string][]string
	if err := headerDecMode.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}
	if m == nil {
		m = map[string][]string{}
	}
	return http.Header(m), nil
}

// compressBody never returns nil, so empty bodies are stored as empty blobs
// rather than NULL.
func compressBody(body []byte) []byte {
	return bodyEncoder.EncodeAll(body, make([]byte, 0, len(body)))
}

func decompressBody(data []byte, size int) ([]byte, error) {
	if len(data) == 0 && size == 0 {
		return []byte{}, nil
	}
	out, err := bodyDecoder.DecodeAll(data, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("decompress body: %w", err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("decompress body: got %d bytes, expected %d", len(out), size)
	}
	return out, nil
}
