// Package transport implements the DataLink protocol driver: the stateful
// USB request/response state machine that discovers, pairs with, and reads
// recorded sessions off a Polar RCX5 watch through its DataLink dongle.
//
// Every operation described here blocks; there are no cooperative
// suspension points inside a single read or write. The device handle is
// owned exclusively by one Transport for its lifetime, and session
// enumeration is strictly sequential — the protocol carries no request id,
// so two in-flight commands would corrupt the dongle's internal state.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/google/gousb"
	"github.com/rs/zerolog"

	"rcx5sync/internal/session"
)

// State is one stage of the DataLink lifecycle.
type State int

const (
	Disconnected State = iota
	Opened
	Searching
	Paired
	Ready
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Opened:
		return "opened"
	case Searching:
		return "searching"
	case Paired:
		return "paired"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// bulkEndpoint is the narrow surface Transport needs from the USB stack,
// kept as an interface so retry/timeout logic can be driven by a mock in
// tests without opening a real device.
type bulkEndpoint interface {
	Write(p []byte) (int, error)
	ReadContext(ctx context.Context, p []byte) (int, error)
}

// Transport drives one DataLink dongle through its full lifecycle.
type Transport struct {
	log zerolog.Logger

	state State
	hw    hardwareID

	ctx    *gousb.Context
	device *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	out    bulkEndpoint
	in     bulkEndpoint

	readTimeout time.Duration
	// pairRetryDelay and countRetryDelay default to the protocol's documented
	// backoff (pairRetryDelayMS, countRetryDelayMS) but are left as fields,
	// not constants, so tests can zero them and exercise a full retry budget
	// without actually sleeping through it.
	pairRetryDelay  time.Duration
	countRetryDelay time.Duration
}

// Open claims the DataLink dongle's USB interface and walks it from
// Disconnected through Opened, Searching and Paired up to Ready.
func Open(log zerolog.Logger) (*Transport, error) {
	t := &Transport{
		log:             log,
		state:           Disconnected,
		readTimeout:     time.Second,
		pairRetryDelay:  time.Duration(pairRetryDelayMS) * time.Millisecond,
		countRetryDelay: time.Duration(countRetryDelayMS) * time.Millisecond,
	}

	ctx := gousb.NewContext()
	device, err := ctx.OpenDeviceWithVIDPID(usbVendorID, usbProductID)
	if err != nil {
		ctx.Close()
		return nil, errIO("open", err)
	}
	if device == nil {
		ctx.Close()
		return nil, errNotFound()
	}

	device.SetAutoDetach(true)

	config, err := device.Config(1)
	if err != nil {
		device.Close()
		ctx.Close()
		return nil, errIO("open", err)
	}
	intf, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		device.Close()
		ctx.Close()
		return nil, errIO("open", err)
	}
	epOut, err := intf.OutEndpoint(endpointOut)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return nil, errIO("open", err)
	}
	epIn, err := intf.InEndpoint(endpointIn)
	if err != nil {
		intf.Close()
		config.Close()
		device.Close()
		ctx.Close()
		return nil, errIO("open", err)
	}

	t.ctx, t.device, t.config, t.intf = ctx, device, config, intf
	t.out, t.in = epOut, epIn

	if err := t.open(); err != nil {
		t.Close()
		return nil, err
	}
	if err := t.search(); err != nil {
		t.Close()
		return nil, err
	}
	if err := t.pair(); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

// Close sends the DataLink disconnect command (if paired) and releases the
// USB handle. Safe to call more than once.
func (t *Transport) Close() error {
	if t.state == Ready && t.out != nil {
		_, _ = t.out.Write(frameDisconnect(t.hw))
	}
	t.state = Closed
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.config != nil {
		t.config.Close()
		t.config = nil
	}
	if t.device != nil {
		t.device.Close()
		t.device = nil
	}
	if t.ctx != nil {
		t.ctx.Close()
		t.ctx = nil
	}
	return nil
}

// State returns the transport's current lifecycle state.
func (t *Transport) State() State { return t.state }

func (t *Transport) open() error {
	if _, err := t.out.Write(frameEnable()); err != nil {
		return errIO("open", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := t.out.Write(frameSessionBegin()); err != nil {
		return errIO("open", err)
	}
	time.Sleep(400 * time.Millisecond)
	t.state = Opened
	return nil
}

func (t *Transport) search() error {
	buf := make([]byte, inFrameSize)
	for attempt := 0; attempt < maxSearchAttempts; attempt++ {
		n, err := t.read(buf)
		if err != nil {
			return errIO("search", err)
		}
		if n > 0 && responseMatches(buf[:n], 0x04, 0x42, 0x20) && n >= 8 {
			t.hw = hardwareID{buf[7], buf[6], buf[5]} // wire is little-endian, stored big-endian
			t.state = Searching
			return nil
		}
	}
	return errTimeout("search")
}

func (t *Transport) pair() error {
	buf := make([]byte, inFrameSize)
	for outer := 0; outer < maxPairOuterTries; outer++ {
		if _, err := t.out.Write(framePair(t.hw)); err != nil {
			return errIO("pair", err)
		}
		for inner := 0; inner < maxPairInnerReads; inner++ {
			n, err := t.read(buf)
			if err != nil {
				return errIO("pair", err)
			}
			if n >= 8 && buf[7] == 0x01 {
				t.state = Ready
				return nil
			}
		}
		time.Sleep(t.pairRetryDelay)
	}
	return errTimeout("pair")
}

// read performs one bulk read, treating a USB timeout as "not ready" rather
// than an error: it returns (0, nil) so the caller's retry loop can pace
// itself instead of aborting.
func (t *Transport) read(buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), t.readTimeout)
	defer cancel()
	n, err := t.in.ReadContext(ctx, buf)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// CountSessions returns the number of sessions recorded on the watch.
func (t *Transport) CountSessions() (int, error) {
	if _, err := t.out.Write(frameCountSessions(t.hw)); err != nil {
		return 0, errIO("count", err)
	}
	buf := make([]byte, inFrameSize)
	for attempt := 0; attempt < maxCountAttempts; attempt++ {
		n, err := t.read(buf)
		if err != nil {
			return 0, errIO("count", err)
		}
		if n > 0 && responseMatches(buf[:n], 0x04, 0x42, 0x3C) && n > 13 {
			return int(buf[13]), nil
		}
		time.Sleep(t.countRetryDelay)
		if _, err := t.out.Write(frameCountSessions(t.hw)); err != nil {
			return 0, errIO("count", err)
		}
	}
	return 0, errTimeout("count")
}

// SessionSize returns the byte length of session n's recorded body.
func (t *Transport) SessionSize(n int) (int, error) {
	if _, err := t.out.Write(frameSessionSize(t.hw, uint8(n))); err != nil {
		return 0, errIO("size", err)
	}
	buf := make([]byte, inFrameSize)
	for attempt := 0; attempt < maxSizeAttempts; attempt++ {
		rn, err := t.read(buf)
		if err != nil {
			return 0, errIO("size", err)
		}
		if rn > 0 && responseMatches(buf[:rn], 0x04, 0x42, 0x06) && rn > 8 {
			return int(buf[8])<<8 | int(buf[7]), nil
		}
	}
	return 0, errTimeout("size")
}

// ReadSession reads session n's full body (sized `size` bytes, as returned
// by SessionSize) in chunks of packetBodySize, returning the ordered list
// of inbound frames exactly as received; decoding them is the decoder
// package's job.
func (t *Transport) ReadSession(n, size int) (session.RawSession, error) {
	var packets [][]byte
	bytesReceived := 0

	for bytesReceived < size {
		remaining := size - bytesReceived
		length := packetBodySize
		if remaining < packetBodySize {
			length = remaining
		}

		if _, err := t.out.Write(frameFetchChunk(t.hw, uint8(n), uint16(bytesReceived), uint16(length))); err != nil {
			return session.RawSession{}, errIO("body", err)
		}

		buf := make([]byte, inFrameSize)
		got := false
		for attempt := 0; attempt < maxChunkAttempts; attempt++ {
			rn, err := t.read(buf)
			if err != nil {
				return session.RawSession{}, errIO("body", err)
			}
			if rn == inFrameSize {
				packet := make([]byte, inFrameSize)
				copy(packet, buf)
				packets = append(packets, packet)
				got = true
				break
			}
		}
		if !got {
			return session.RawSession{}, errTimeout("body")
		}

		bytesReceived += length
	}

	return session.RawSession{Packets: packets}, nil
}
