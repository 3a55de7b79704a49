package axpert

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
)

// Sample frame bodies, without the leading marker.
const (
	TEST_INVERTER_STATUS          = "230.0 49.9 229.9 50.0 0920 0851 018 400 52.10 010 085 0345 0009.5 310.2 52.20 00000 00010110 00 01234 L"
	TEST_INVERTER_SETTINGS        = "230.0 21.7 230.0 50.0 21.7 5000 5000 48.0 46.0 42.0 56.4 54.0 2 30 060 0 2 3 9 01 0 0 54.0 0 1"
	TEST_CHARGE_CONTROLLER_STATUS = "098.4 52.10 012.1 006.0 006.1 00630 031 00.00 00 0 00010000"
	TEST_CHARGE_CONTROLLER_CONFIG = "060 48 57.60 55.20 01 0 0 0 0 0 0 0 0"
)

// ResponseFrame encodes a device response: marker + body + CRC + CR.
func ResponseFrame(body string) []byte {
	return EncodeCommand([]byte(string(FRAME_MARKER) + body))
}

// TestDevice is a fake device reachable through its DialContext. Each received
// command payload is answered with the configured raw bytes.
type TestDevice struct {
	mu        sync.Mutex
	responses map[string][]byte
	commands  []string
	dials     int

	// Refuse fails every dial.
	Refuse bool
}

func NewTestDevice() *TestDevice {
	return &TestDevice{responses: map[string][]byte{}}
}

func NewTestInverter() *TestDevice {
	return NewTestDevice().
		Respond(COMMAND_QUERY_STATUS, ResponseFrame(TEST_INVERTER_STATUS)).
		Respond(COMMAND_QUERY_SETTINGS, ResponseFrame(TEST_INVERTER_SETTINGS))
}

func NewTestChargeController() *TestDevice {
	return NewTestDevice().
		Respond(COMMAND_QUERY_STATUS, ResponseFrame(TEST_CHARGE_CONTROLLER_STATUS)).
		Respond(COMMAND_QUERY_SETTINGS, ResponseFrame(TEST_CHARGE_CONTROLLER_CONFIG))
}

// Respond sets the raw bytes written back for a command payload. The chunks are
// concatenated, so stray frames can precede the real answer. A command without
// response is never answered.
func (d *TestDevice) Respond(command string, chunks ...[]byte) *TestDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses[command] = bytes.Join(chunks, nil)
	return d
}

// Silence removes the response of a command.
func (d *TestDevice) Silence(command string) *TestDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.responses, command)
	return d
}

// Commands returns the command payloads received so far, CRC stripped.
func (d *TestDevice) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

func (d *TestDevice) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *TestDevice) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	d.dials++
	refuse := d.Refuse
	d.mu.Unlock()

	if refuse {
		return nil, &net.OpError{Op: "dial", Net: network, Err: errors.New("connection refused")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, server := net.Pipe()
	go d.serve(server)
	return client, nil
}

func (d *TestDevice) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		payload, err := readCommand(r)
		if err != nil {
			return
		}
		d.mu.Lock()
		d.commands = append(d.commands, payload)
		response, ok := d.responses[payload]
		d.mu.Unlock()
		if !ok {
			continue
		}
		if _, err := conn.Write(response); err != nil {
			return
		}
	}
}

// readCommand reads up to a CR whose preceding two bytes are a valid CRC of
// the rest, so a CRC byte equal to CR does not end the command early.
func readCommand(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadBytes(FRAME_TERMINATOR)
		if err != nil {
			return "", err
		}
		buf = append(buf, chunk...)
		body := buf[:len(buf)-1]
		if len(body) < FRAME_CRC_SIZE {
			continue
		}
		payload := body[:len(body)-FRAME_CRC_SIZE]
		if binary.BigEndian.Uint16(body[len(body)-FRAME_CRC_SIZE:]) == Checksum(payload) {
			return string(payload), nil
		}
	}
}
