package repositories

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder
	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func compress(data []byte) []byte {
	encoderOnce.Do(func() {
		// a nil writer is allowed when only EncodeAll is used
		encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	})
	return encoder.EncodeAll(data, nil)
}

func decompress(data []byte) ([]byte, error) {
	decoderOnce.Do(func() {
		decoder, _ = zstd.NewReader(nil)
	})
	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress data: %v", err)
	}
	return out, nil
}

func ensureID(id string) (string, error) {
	if id == "" {
		return uuid.NewString(), nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid capture id %q: %v", id, err)
	}
	return id, nil
}
