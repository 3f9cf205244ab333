package filemanager

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// transcribeAudio runs a 16-bit PCM WAV resource through whisper.cpp and
// renders its segments as a markdown transcript, grounded on the decode and
// inference calls in cmd/whisper-go/main.go.
func (m *Manager) transcribeAudio(content []byte) (string, error) {
	if m.ModelPath == "" {
		return "", fmt.Errorf("transcribe audio: no whisper model configured")
	}
	samples, err := decodeWAV(content)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	model, err := whisper.New(m.ModelPath)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: load model: %w", err)
	}
	defer model.Close()

	wctx, err := model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe audio: new context: %w", err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe audio: process: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Transcript\n\n")
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		b.WriteString(strings.TrimSpace(segment.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// decodeWAV converts 16-bit or 32-bit-float PCM WAV bytes into the mono
// float32 samples whisper.cpp expects, downmixing stereo by averaging
// channels.
func decodeWAV(content []byte) ([]float32, error) {
	if len(content) < 44 {
		return nil, fmt.Errorf("wav content too short")
	}
	var header wavHeader
	reader := bytes.NewReader(content)
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read wav header: %w", err)
	}
	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, fmt.Errorf("invalid wav file")
	}

	audioData := make([]byte, header.Subchunk2Size)
	if _, err := io.ReadFull(reader, audioData); err != nil {
		return nil, fmt.Errorf("read audio data: %w", err)
	}

	var samples []float32
	switch header.BitsPerSample {
	case 16:
		for i := 0; i+1 < len(audioData); i += 2 {
			sample := int16(binary.LittleEndian.Uint16(audioData[i : i+2]))
			samples = append(samples, float32(sample)/32768.0)
		}
	case 32:
		for i := 0; i+3 < len(audioData); i += 4 {
			bits := binary.LittleEndian.Uint32(audioData[i : i+4])
			samples = append(samples, math.Float32frombits(bits))
		}
	default:
		return nil, fmt.Errorf("unsupported bits per sample: %d", header.BitsPerSample)
	}

	if header.NumChannels == 2 {
		mono := make([]float32, len(samples)/2)
		for i := range mono {
			mono[i] = (samples[i*2] + samples[i*2+1]) / 2.0
		}
		samples = mono
	}
	return samples, nil
}
