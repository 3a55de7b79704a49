package axpert

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumKnownVectors(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(uint16(0xB7A9), Checksum([]byte("QPIGS")))
	assert.Equal(uint16(0xF854), Checksum([]byte("QPIRI")))
	assert.Equal(uint16(0x49C1), Checksum([]byte("QMOD")))
}

func TestEncodeCommand(t *testing.T) {

	assert := assert.New(t)

	assert.Equal([]byte{'Q', 'P', 'I', 'G', 'S', 0xB7, 0xA9, 0x0D}, EncodeCommand([]byte("QPIGS")))
	assert.Equal([]byte{0x00, 0x00, 0x0D}, EncodeCommand(nil))
}

func TestDecodeFrameRoundTrip(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	encoded := ResponseFrame(TEST_INVERTER_STATUS)
	frame, err := DecodeFrame(bufio.NewReader(bytes.NewReader(encoded)))
	require.NoError(err)

	assert.True(frame.Terminated)
	assert.True(frame.WellFormed())
	assert.Equal(encoded[:len(encoded)-1], frame.Raw)
	assert.Equal(TEST_INVERTER_STATUS, string(frame.Body()))
	assert.Len(frame.Fields(), 20)
}

// The CRC is not escaped: a checksum byte equal to the terminator ends the
// frame early on the receiving side.
func TestEncodeCommandChecksumContainsTerminator(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	payload := []byte("PBFV53.53")
	require.Equal(uint16(0x0DF6), Checksum(payload))

	encoded := EncodeCommand(payload)
	assert.Equal([]byte("PBFV53.53\r\xf6\r"), encoded)

	r := bufio.NewReader(bytes.NewReader(encoded))
	frame, err := DecodeFrame(r)
	require.NoError(err)
	assert.Equal("PBFV53.53", string(frame.Raw))

	frame, err = DecodeFrame(r)
	require.NoError(err)
	assert.Equal([]byte{0xF6}, frame.Raw)

	// low CRC byte: the frame loses one checksum byte, the extra CR is a
	// leftover skipped by the next read
	payload = []byte("PBFV48.47")
	require.Equal(uint16(0xCA0D), Checksum(payload))
	r = bufio.NewReader(bytes.NewReader(EncodeCommand(payload)))
	frame, err = DecodeFrame(r)
	require.NoError(err)
	assert.Equal([]byte("PBFV48.47\xca"), frame.Raw)
	_, err = DecodeFrame(r)
	assert.ErrorIs(err, io.EOF)
}

func TestEncodeCommandRoundTripWithoutTerminatorInChecksum(t *testing.T) {

	assert := assert.New(t)

	for _, payload := range []string{"QPIGS", "QPIRI", "QMOD", "PBFV53.52", "PCVV56.4", "POP02"} {
		crc := Checksum([]byte(payload))
		if byte(crc>>8) == FRAME_TERMINATOR || byte(crc) == FRAME_TERMINATOR {
			continue
		}
		frame, err := DecodeFrame(bufio.NewReader(bytes.NewReader(EncodeCommand([]byte(payload)))))
		assert.NoError(err, payload)
		assert.Equal(payload, frame.Text(), payload)
	}
}

func TestDecodeFrameSkipsLeadingTerminator(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	r := bufio.NewReader(bytes.NewReader([]byte("\r\r(ACK\x39\x20\r")))
	frame, err := DecodeFrame(r)
	require.NoError(err)

	assert.Equal("(ACK", frame.Text())
	assert.True(Acknowledged(frame))
}

func TestDecodeFramePartial(t *testing.T) {

	assert := assert.New(t)

	frame, err := DecodeFrame(bufio.NewReader(bytes.NewReader([]byte("(230.0 49"))))

	assert.ErrorIs(err, io.EOF)
	assert.False(frame.Terminated)
	assert.Equal("(230.0 49", string(frame.Raw))
}

func TestFrameBodyTooShort(t *testing.T) {

	assert := assert.New(t)

	assert.Nil(Frame{Raw: []byte("(A")}.Body())
	assert.Empty(Frame{Raw: []byte("(A")}.Fields())
	assert.False(Frame{}.WellFormed())
	assert.False(Frame{Raw: []byte("NAKss")}.WellFormed())
}
