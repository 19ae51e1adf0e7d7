package network

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Large chunk frames travel as binary websocket messages holding a zstd
// compressed envelope. Text messages are always plain JSON.

// MaxDecodedSize bounds a decompressed frame.
const MaxDecodedSize = 64 << 20

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(0),
			zstd.WithDecoderMaxMemory(MaxDecodedSize),
			zstd.WithDecoderMaxWindow(MaxDecodedSize),
		)
	})
	return encoder, decoder, codecErr
}

// Compress returns a zstd frame of data.
func Compress(data []byte) ([]byte, error) {
	enc, _, err := codec()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

// Decompress reverses Compress. Frames that inflate beyond MaxDecodedSize
// are rejected.
func Decompress(data []byte) ([]byte, error) {
	_, dec, err := codec()
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

// DecodeFrame decodes an envelope from a websocket message, decompressing
// binary frames first.
func DecodeFrame(binary bool, data []byte) (Envelope, error) {
	if binary {
		plain, err := Decompress(data)
		if err != nil {
			return Envelope{}, err
		}
		data = plain
	}
	return Decode(data)
}
