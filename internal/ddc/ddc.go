// Package ddc speaks the VESA DDC/CI protocol used to read and write
// monitor control (VCP) features over an I2C bus.
//
// Only the two operations needed to drive a display's power mode are
// implemented: Get VCP Feature and Set VCP Feature. The transport is any
// io.ReadWriteCloser already bound to the monitor's DDC/CI slave address;
// on Linux Open provides one backed by an i2c-dev character device.
package ddc

import (
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	// DefaultAddress is the 7-bit I2C slave address of the DDC/CI endpoint.
	DefaultAddress uint16 = 0x37

	// FeaturePowerMode is the VCP code for the display power mode (DPMS) control.
	FeaturePowerMode byte = 0xD6

	hostAddress    byte = 0x51
	displayAddress byte = 0x6E
	replyChecksum  byte = 0x50

	opGetVCP      byte = 0x01
	opGetVCPReply byte = 0x02
	opSetVCP      byte = 0x03

	lengthFlag byte = 0x80

	getReplyDelay = 40 * time.Millisecond
	setSettleTime = 50 * time.Millisecond
)

var (
	// ErrChecksum is returned when a reply frame fails checksum validation.
	ErrChecksum = errors.New("ddc: reply checksum mismatch")

	// ErrShortReply is returned for truncated or null reply frames.
	ErrShortReply = errors.New("ddc: short reply")

	// ErrUnsupported is returned when the display rejects a VCP code.
	ErrUnsupported = errors.New("ddc: unsupported vcp feature")
)

// Value is the result of a Get VCP Feature request.
type Value struct {
	Type    byte
	Max     uint16
	Current uint16
}

// Device is an open DDC/CI endpoint. Implementations hold an OS handle
// and must be closed by the caller once the operation is done.
type Device interface {
	GetVCP(code byte) (Value, error)
	SetVCP(code byte, value uint16) error
	Close() error
}

// Opener acquires a fresh Device for the bus at path.
type Opener func(path string, address uint16) (Device, error)

// Conn implements Device on top of a raw byte transport.
type Conn struct {
	rw    io.ReadWriteCloser
	sleep func(time.Duration)
}

// NewConn wraps rw, which must already be addressed to the display.
func NewConn(rw io.ReadWriteCloser) *Conn {
	return &Conn{rw: rw, sleep: time.Sleep}
}

// GetVCP reads the current and maximum value of a VCP feature.
func (c *Conn) GetVCP(code byte) (Value, error) {
	if _, err := c.rw.Write(encodeFrame([]byte{opGetVCP, code})); err != nil {
		return Value{}, fmt.Errorf("write get vcp 0x%02x: %w", code, err)
	}

	c.sleep(getReplyDelay)

	reply := make([]byte, 11)
	n, err := c.rw.Read(reply)
	if err != nil {
		return Value{}, fmt.Errorf("read vcp 0x%02x reply: %w", code, err)
	}

	return decodeGetVCPReply(reply[:n], code)
}

// SetVCP writes a VCP feature value. DDC/CI has no acknowledgement for
// Set VCP, so a nil error only means the bus accepted the frame.
func (c *Conn) SetVCP(code byte, value uint16) error {
	frame := encodeFrame([]byte{opSetVCP, code, byte(value >> 8), byte(value)})
	if _, err := c.rw.Write(frame); err != nil {
		return fmt.Errorf("write set vcp 0x%02x: %w", code, err)
	}

	c.sleep(setSettleTime)
	return nil
}

// Close releases the underlying transport.
func (c *Conn) Close() error {
	return c.rw.Close()
}

// encodeFrame builds a host-to-display message: source address, length
// byte, payload and checksum. The checksum covers the destination address
// even though that byte is carried by the I2C address phase, not the frame.
func encodeFrame(payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+3)
	frame = append(frame, hostAddress, lengthFlag|byte(len(payload)))
	frame = append(frame, payload...)
	return append(frame, checksum(displayAddress, frame))
}

func decodeGetVCPReply(reply []byte, code byte) (Value, error) {
	if len(reply) < 3 {
		return Value{}, fmt.Errorf("%w: %d bytes", ErrShortReply, len(reply))
	}

	length := int(reply[1] &^ lengthFlag)
	if length == 0 {
		// Null message: the display had nothing to say yet.
		return Value{}, fmt.Errorf("%w: null message", ErrShortReply)
	}
	if length != 8 || len(reply) < 11 {
		return Value{}, fmt.Errorf("%w: length %d", ErrShortReply, length)
	}

	frame := reply[:2+length]
	if want := checksum(replyChecksum, frame); reply[2+length] != want {
		return Value{}, fmt.Errorf("%w: got 0x%02x want 0x%02x", ErrChecksum, reply[2+length], want)
	}

	if frame[2] != opGetVCPReply {
		return Value{}, fmt.Errorf("ddc: unexpected opcode 0x%02x", frame[2])
	}
	if frame[3] != 0 {
		return Value{}, fmt.Errorf("%w: 0x%02x", ErrUnsupported, code)
	}
	if frame[4] != code {
		return Value{}, fmt.Errorf("ddc: reply for vcp 0x%02x, asked for 0x%02x", frame[4], code)
	}

	return Value{
		Type:    frame[5],
		Max:     uint16(frame[6])<<8 | uint16(frame[7]),
		Current: uint16(frame[8])<<8 | uint16(frame[9]),
	}, nil
}

func checksum(seed byte, data []byte) byte {
	sum := seed
	for _, b := range data {
		sum ^= b
	}
	return sum
}
