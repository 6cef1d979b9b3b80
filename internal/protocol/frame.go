package protocol

import "fmt"

// Checksum returns the sum of data modulo 256.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// FrameSize returns the encoded size of a frame carrying n payload bytes.
func FrameSize(n int) int {
	return HeaderSize + n + ChecksumSize
}

// Message is one protocol message. It owns its payload.
type Message struct {
	Type    MessageType
	Payload []byte
}

// NewMessage returns a message holding a copy of payload.
func NewMessage(t MessageType, payload []byte) *Message {
	return &Message{Type: t, Payload: append([]byte(nil), payload...)}
}

// Encode returns the wire frame for m.
func (m *Message) Encode() ([]byte, error) {
	return Frame(m.Type, m.Payload)
}

func (m *Message) String() string {
	return fmt.Sprintf("%s[%d]", m.Type, len(m.Payload))
}

// Frame encodes a message. Payloads longer than MaxPayloadSize are rejected;
// callers segment upstream.
func Frame(t MessageType, payload []byte) ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownMessageType, uint8(t))
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	buf := make([]byte, FrameSize(len(payload)))
	buf[0] = byte(t)
	buf[1] = byte(len(payload))
	copy(buf[HeaderSize:], payload)
	buf[len(buf)-1] = Checksum(buf[:len(buf)-1])
	return buf, nil
}

// Decode parses one frame from the start of data. Bytes after the frame are
// ignored. The returned payload does not alias data.
func Decode(data []byte) (*Message, error) {
	if len(data) < MinFrameSize {
		return nil, &FrameError{Length: len(data), Err: ErrFrameTooShort}
	}

	n := int(data[1])
	end := HeaderSize + n
	if len(data) < end+ChecksumSize {
		return nil, &FrameError{Length: len(data), Err: ErrFrameTruncated}
	}

	if want, got := Checksum(data[:end]), data[end]; want != got {
		return nil, &FrameError{
			Length: len(data),
			Err:    fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrChecksumMismatch, got, want),
		}
	}

	t, err := ParseMessageType(data[0])
	if err != nil {
		return nil, &FrameError{Length: len(data), Err: err}
	}

	return &Message{Type: t, Payload: append([]byte{}, data[HeaderSize:end]...)}, nil
}

// Unframe is Decode.
func Unframe(data []byte) (*Message, error) {
	return Decode(data)
}
