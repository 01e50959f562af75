package storage

import (
	"bytes"
	"encoding/binary"
)

const (
	wavSampleRate    = 44100
	wavChannels      = 2
	wavBitsPerSample = 16
)

// SilentWAV returns a 16-bit stereo PCM WAV file of the given length
// containing silence.
func SilentWAV(durationMillis int) []byte {
	if durationMillis < 0 {
		durationMillis = 0
	}
	blockAlign := wavChannels * wavBitsPerSample / 8
	frames := wavSampleRate * durationMillis / 1000
	dataSize := frames * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(wavChannels))
	binary.Write(buf, binary.LittleEndian, uint32(wavSampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(wavSampleRate*blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(wavBitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}
