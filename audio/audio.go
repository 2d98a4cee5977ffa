package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zaf/g711"
)

// Encoding names accepted on telephone-grade uploads.
const (
	EncodingPCMU  = "pcmu"  // G.711 µ-law, 8 kHz
	EncodingPCMA  = "pcma"  // G.711 A-law, 8 kHz
	EncodingPCM16 = "pcm16" // raw 16-bit LPCM, little endian
)

// TelephoneSampleRate is the sample rate of G.711 streams.
const TelephoneSampleRate = 8000

// PCMToWAV wraps 16-bit little-endian mono PCM into a WAV container.
func PCMToWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, errors.New("PCM data is empty")
	}
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM data must have even length (16-bit samples)")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}

	const (
		numChannels    = 1
		bitsPerSample  = 16
		audioFormatPCM = 1
		subchunk1Size  = 16
	)

	blockAlign := numChannels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(pcm)
	fileSize := 36 + dataSize

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(subchunk1Size))
	binary.Write(buf, binary.LittleEndian, uint16(audioFormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// NormalizeToWAV converts a raw telephone-grade payload into a WAV file the
// transcription service understands. G.711 variants are decoded to LPCM
// first; pcm16 is wrapped as-is.
func NormalizeToWAV(encoding string, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("audio payload is empty")
	}
	switch encoding {
	case EncodingPCMU:
		return PCMToWAV(g711.DecodeUlaw(data), TelephoneSampleRate)
	case EncodingPCMA:
		return PCMToWAV(g711.DecodeAlaw(data), TelephoneSampleRate)
	case EncodingPCM16:
		return PCMToWAV(data, TelephoneSampleRate)
	default:
		return nil, fmt.Errorf("unsupported audio encoding %q", encoding)
	}
}
