// Package relay implements the Wink Relay intercom wire protocol:
// fixed-size PCM datagrams on UDP port 10444, directed at the subnet
// broadcast address, with START/END markers and null-packet priming.
package relay

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/relaycast/relaycast/pkg/xnet"
	"github.com/rs/zerolog"
)

const (
	// Port is the audio channel port, fixed by the Relay firmware.
	Port = 10444

	// FrameSize is the size of every datagram in the audio stream:
	// 160 samples of s16le mono 16 kHz PCM, 10 ms of audio.
	FrameSize = 320

	// DefaultMask substitutes a netmask that fails to parse.
	DefaultMask = "255.255.255.0"
)

const (
	markerStart byte = 0x7F // wakes up the Relay
	markerEnd   byte = 0x80 // the Relay sends these after its own streams
)

var (
	ErrNoData      = errors.New("relay: no audio data")
	ErrNoConverter = errors.New("relay: no converter configured")
)

// ConvertParams describes one request to the external audio converter.
type ConvertParams struct {
	Resample bool    // decode the native container and resample to mono 16 kHz
	BoostDB  float64 // volume gain in dB, 0 = none
}

// Converter re-encodes source audio to raw s16le mono 16 kHz PCM.
// When params.Resample is unset the source is already raw PCM and
// only the gain is applied.
type Converter interface {
	Convert(src []byte, params ConvertParams) ([]byte, error)
}

type Config struct {
	Host      string  // interface IPv4 address
	Netmask   string  // dotted quad, default 255.255.255.0
	Port      int     // destination port, default 10444
	Convert   bool    // decode and resample every source
	BoostDB   float64 // volume gain in dB, 0 = none
	Converter Converter
	Timing    *Timing // nil = DefaultTiming
	Log       zerolog.Logger
}

type packetConn interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	Close() error
}

// Broadcaster owns one broadcast UDP socket for the lifetime of the
// process. Send blocks for the realtime duration of the clip.
type Broadcaster struct {
	conn    packetConn
	addr    *net.UDPAddr
	convert bool
	conv    Converter
	t       Timing
	log     zerolog.Logger

	mu      sync.Mutex
	boostDB float64

	sleep func(time.Duration)
}

func NewBroadcaster(cfg Config) (*Broadcaster, error) {
	ip := net.ParseIP(cfg.Host)
	if ip == nil || ip.To4() == nil {
		return nil, errors.New("relay: invalid host address: " + cfg.Host)
	}

	if cfg.Netmask == "" {
		cfg.Netmask = DefaultMask
	}
	mask, err := xnet.ParseMask(cfg.Netmask)
	if err != nil {
		cfg.Log.Warn().Err(err).Str("default", DefaultMask).Msg("[relay] bad netmask")
		mask, _ = xnet.ParseMask(DefaultMask)
	}

	if cfg.Port == 0 {
		cfg.Port = Port
	}

	t := DefaultTiming()
	if cfg.Timing != nil {
		t = *cfg.Timing
	}

	conn, err := listenBroadcast()
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		conn:    conn,
		addr:    &net.UDPAddr{IP: xnet.BroadcastAddr(ip, mask), Port: cfg.Port},
		convert: cfg.Convert,
		boostDB: cfg.BoostDB,
		conv:    cfg.Converter,
		t:       t,
		log:     cfg.Log,
		sleep:   time.Sleep,
	}, nil
}

// listenBroadcast opens a UDP socket with SO_BROADCAST, required for
// sending to the directed broadcast address.
func listenBroadcast() (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, conn syscall.RawConn) (err error) {
			cerr := conn.Control(func(fd uintptr) {
				err = SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
			})
			if err == nil {
				err = cerr
			}
			return
		},
	}
	return lc.ListenPacket(context.Background(), "udp4", ":0")
}

// Addr returns the resolved destination (broadcast address and port).
func (b *Broadcaster) Addr() string {
	return b.addr.String()
}

// SetBoost replaces the gain for subsequent Send calls.
func (b *Broadcaster) SetBoost(db float64) {
	b.mu.Lock()
	b.boostDB = db
	b.mu.Unlock()
}

func (b *Broadcaster) boost() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.boostDB
}

// SendFile reads the whole file and broadcasts it. An unreadable or
// empty file aborts before any network activity.
func (b *Broadcaster) SendFile(name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrNoData
	}
	return b.Send(data)
}

// Send converts the source if configured and broadcasts it as a paced
// stream of fixed-size datagrams. It blocks until the trailing END
// sequence completes or the first socket error.
func (b *Broadcaster) Send(data []byte) error {
	if len(data) == 0 {
		return ErrNoData
	}

	boost := b.boost()

	var err error
	switch {
	case b.convert:
		if b.conv == nil {
			return ErrNoConverter
		}
		data, err = b.conv.Convert(data, ConvertParams{Resample: true, BoostDB: boost})
	case boost != 0:
		if b.conv == nil {
			return ErrNoConverter
		}
		data, err = b.conv.Convert(data, ConvertParams{BoostDB: boost})
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrNoData
	}

	return b.stream(data)
}

func (b *Broadcaster) stream(data []byte) error {
	frames := (len(data) + FrameSize - 1) / FrameSize

	b.log.Debug().
		Str("addr", b.addr.String()).
		Str("duration", Duration(len(data)).String()).
		Msgf("[relay] stream %d frames", frames)

	null := make([]byte, FrameSize)

	// wake up the Relay and prime its jitter buffer
	if err := b.write([]byte{markerStart}); err != nil {
		return err
	}
	for i := 0; i < b.t.PrimeCount; i++ {
		if err := b.write(null); err != nil {
			return err
		}
	}
	if b.t.PrimePause > 0 {
		b.sleep(b.t.PrimePause)
	}

	frame := make([]byte, FrameSize)
	for i := 0; i < frames; i++ {
		n := copy(frame, data[i*FrameSize:])
		for ; n < FrameSize; n++ {
			frame[n] = 0 // zero-pad the short last chunk, never truncate
		}
		if err := b.write(frame); err != nil {
			return err
		}
		// a longer pause on every DrainEvery-th frame lets the
		// receiver buffer drain, otherwise playback glitches
		if b.t.DrainEvery > 0 && i%b.t.DrainEvery == 0 {
			b.sleep(b.t.DrainDelay)
		} else {
			b.sleep(b.t.FrameDelay)
		}
	}

	// trailing nulls keep the firmware end tone from clipping the tail
	for i := 0; i < b.t.TrailCount; i++ {
		if err := b.write(null); err != nil {
			return err
		}
	}

	// without repeated END markers the Relay may get stuck after playback
	for i := 0; i < b.t.EndCount; i++ {
		if i > 0 {
			b.sleep(b.t.EndDelay)
		}
		if err := b.write([]byte{markerEnd}); err != nil {
			return err
		}
	}

	return nil
}

func (b *Broadcaster) write(p []byte) error {
	_, err := b.conn.WriteTo(p, b.addr)
	return err
}

func (b *Broadcaster) Close() error {
	return b.conn.Close()
}

// Duration returns the realtime playback length of a raw PCM clip.
func Duration(size int) time.Duration {
	frames := (size + FrameSize - 1) / FrameSize
	return time.Duration(frames) * 10 * time.Millisecond
}

func (b *Broadcaster) String() string {
	return "relay " + b.addr.IP.String() + ":" + strconv.Itoa(b.addr.Port)
}
