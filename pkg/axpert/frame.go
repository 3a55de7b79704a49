package axpert

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/sigurn/crc16"
)

const (
	FRAME_TERMINATOR byte = 0x0D
	FRAME_MARKER     byte = 0x28 // '('
	FRAME_CRC_SIZE        = 2
)

// CRC-16/XMODEM: poly 0x1021, init 0x0000, no reflection
var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Frame is one terminator-delimited unit read from the device.
// Raw never contains the terminator byte.
type Frame struct {
	Raw        []byte
	Terminated bool
}

func Checksum(payload []byte) uint16 {
	return crc16.Checksum(payload, crcTable)
}

// EncodeCommand returns payload + crcHigh + crcLow + CR.
func EncodeCommand(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+FRAME_CRC_SIZE+1)
	out = append(out, payload...)
	out = binary.BigEndian.AppendUint16(out, Checksum(payload))
	return append(out, FRAME_TERMINATOR)
}

// DecodeFrame reads one frame byte by byte. A terminator found while the buffer
// is still empty is a leftover from a previous exchange and is skipped.
// On a read error the partial frame is returned together with the error.
func DecodeFrame(r io.ByteReader) (Frame, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return Frame{Raw: buf}, err
		}
		if b == FRAME_TERMINATOR {
			if len(buf) == 0 {
				continue
			}
			return Frame{Raw: buf, Terminated: true}, nil
		}
		buf = append(buf, b)
	}
}

func (f Frame) WellFormed() bool {
	return len(f.Raw) > 0 && f.Raw[0] == FRAME_MARKER
}

// Body is the frame content between the marker and the CRC suffix.
func (f Frame) Body() []byte {
	if len(f.Raw) < 1+FRAME_CRC_SIZE {
		return nil
	}
	return f.Raw[1 : len(f.Raw)-FRAME_CRC_SIZE]
}

// Fields splits the body on runs of spaces.
func (f Frame) Fields() []string {
	parts := bytes.Fields(f.Body())
	fields := make([]string, len(parts))
	for i := range parts {
		fields[i] = string(parts[i])
	}
	return fields
}

// Text is the printable part of the frame, used for ACK checks and diagnostics.
func (f Frame) Text() string {
	if len(f.Raw) > FRAME_CRC_SIZE {
		return string(f.Raw[:len(f.Raw)-FRAME_CRC_SIZE])
	}
	return string(f.Raw)
}
