package cache

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	"github.com/soltixdb/chamberview/internal/downsampling"
)

// Payload format markers, stored as the first byte
const (
	formatJSON   byte = 'j'
	formatSnappy byte = 's'
)

// encodeResult serializes a result as JSON, snappy-compressed when compress is set
func encodeResult(res downsampling.AggregationResult, compress bool) ([]byte, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	if !compress {
		return append([]byte{formatJSON}, data...), nil
	}
	return append([]byte{formatSnappy}, snappy.Encode(nil, data)...), nil
}

// decodeResult reverses encodeResult
func decodeResult(payload []byte) (downsampling.AggregationResult, error) {
	var res downsampling.AggregationResult
	if len(payload) == 0 {
		return res, fmt.Errorf("empty cache payload")
	}

	data := payload[1:]
	switch payload[0] {
	case formatJSON:
	case formatSnappy:
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return res, fmt.Errorf("snappy decompress failed: %w", err)
		}
		data = decoded
	default:
		return res, fmt.Errorf("unknown cache payload format %q", payload[0])
	}

	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("failed to decode result: %w", err)
	}
	return res, nil
}
