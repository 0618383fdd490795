package snd

import (
	"encoding/binary"
	"time"
)

const (
	// SampleRate is the capture rate the recognizer expects.
	SampleRate = 16000
	// BlockSize is the number of samples per chunk, 250 ms at SampleRate.
	BlockSize = 4000
)

// Format describes the PCM layout a Source must deliver: mono, signed
// 16-bit little-endian samples.
type Format struct {
	SampleRate int
	BlockSize  int
}

// DefaultFormat is 16 kHz mono in 4000-sample blocks.
var DefaultFormat = Format{SampleRate: SampleRate, BlockSize: BlockSize}

func (f Format) BlockBytes() int {
	return f.BlockSize * 2
}

func (f Format) BlockDuration() time.Duration {
	return time.Duration(f.BlockSize) * time.Second / time.Duration(f.SampleRate)
}

// Chunk is one captured block. Seq counts blocks from zero within a stream.
// A chunk must not be modified after it has been delivered.
type Chunk struct {
	Seq     int
	Samples []int16
}

// Bytes encodes the samples as little-endian PCM.
func (c Chunk) Bytes() []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// ChunkFromBytes decodes little-endian PCM. A trailing odd byte is ignored.
func ChunkFromBytes(seq int, pcm []byte) Chunk {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return Chunk{Seq: seq, Samples: samples}
}
