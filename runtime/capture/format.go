package capture

import (
	"bytes"
	"encoding/binary"
)

// MIME types produced by the built-in devices.
const (
	MIMETypeWAV  = "audio/wav"
	MIMETypeWebM = "audio/webm"
	MIMETypeOgg  = "audio/ogg"
)

// Format assembles device bytes into an uploadable container.
type Format interface {
	MIMEType() string
	Extension() string

	// Assemble joins chunks, in order, into the finalized payload. It must
	// accept zero chunks.
	Assemble(chunks [][]byte) []byte

	// WrapSegment turns the bytes of one segment into its upload payload.
	WrapSegment(data []byte) []byte
}

// StreamFormat is a self-framed container (webm/opus, ogg): the encoder's
// bytes concatenate into a valid file, so assembly is plain concatenation.
type StreamFormat struct {
	MIME string
	Ext  string
}

// Built-in stream formats.
var (
	FormatWebM = StreamFormat{MIME: MIMETypeWebM, Ext: "webm"}
	FormatOgg  = StreamFormat{MIME: MIMETypeOgg, Ext: "ogg"}
)

// MIMEType implements Format.
func (f StreamFormat) MIMEType() string { return f.MIME }

// Extension implements Format.
func (f StreamFormat) Extension() string { return f.Ext }

// Assemble implements Format.
func (f StreamFormat) Assemble(chunks [][]byte) []byte {
	return bytes.Join(chunks, nil)
}

// WrapSegment implements Format. Stream segments are raw slices that the
// backend reassembles by index.
func (f StreamFormat) WrapSegment(data []byte) []byte {
	return data
}

const (
	wavHeaderSize   = 44
	wavFmtChunkSize = 16
	wavPCMFormat    = 1
	bitsPerByte     = 8
)

// WAVFormat wraps little-endian PCM in a RIFF/WAVE header.
type WAVFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// FormatPCM16Mono16k is the format produced by the PortAudio device.
var FormatPCM16Mono16k = WAVFormat{SampleRate: 16000, Channels: 1, BitDepth: 16}

// MIMEType implements Format.
func (f WAVFormat) MIMEType() string { return MIMETypeWAV }

// Extension implements Format.
func (f WAVFormat) Extension() string { return "wav" }

// Assemble implements Format. Zero chunks yield a valid header-only file.
func (f WAVFormat) Assemble(chunks [][]byte) []byte {
	return f.wrap(bytes.Join(chunks, nil))
}

// WrapSegment implements Format. Every PCM segment becomes a standalone WAV.
func (f WAVFormat) WrapSegment(data []byte) []byte {
	return f.wrap(data)
}

// BytesPerSecond returns the PCM byte rate.
func (f WAVFormat) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / bitsPerByte
}

func (f WAVFormat) wrap(pcm []byte) []byte {
	dataSize := uint32(len(pcm))
	blockAlign := uint16(f.Channels * f.BitDepth / bitsPerByte)

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, dataSize+wavHeaderSize-8)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(wavFmtChunkSize))
	_ = binary.Write(buf, binary.LittleEndian, uint16(wavPCMFormat))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.BytesPerSecond()))
	_ = binary.Write(buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BitDepth))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	return buf.Bytes()
}
