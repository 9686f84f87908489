// Package ssdp implements just enough of the SSDP discovery protocol to
// impersonate a second Wink Relay, so that a lone device enables its
// intercom feature. It is not a general SSDP stack.
package ssdp

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultPort is the SSDP discovery port.
	DefaultPort = 1900

	// DefaultAdvertisePort goes into the forged LOCATION field. The
	// device never connects to it, the announcement alone is enough.
	DefaultAdvertisePort = 8888

	// DefaultDeviceType is the vendor prefix of the Relay service type.
	DefaultDeviceType = "wink-com"

	// pollTimeout bounds how long Stop waits for the loop to notice
	// the interrupt flag. Not a protocol deadline.
	pollTimeout = 2 * time.Second
)

var multicastGroup = net.IPv4(239, 255, 255, 250)

// the SERVER value the real device announces with
const serverName = "node.js/0.10.38 UpnP/1.1 node-ssdp/2.6.5"

type Config struct {
	Host          string // interface address, goes into LOCATION
	AdvertisePort int    // default 8888
	Port          int    // listen port, default 1900
	DeviceType    string // default "wink-com"
	OneShot       bool   // strict variant: answer one matching query, then stop
	Log           zerolog.Logger
}

// Responder listens on the SSDP multicast group and answers M-SEARCH
// queries with a forged device announcement. The response is rendered
// once at construction, repeated replies are byte-identical.
type Responder struct {
	host     string
	port     int
	st       string
	oneshot  bool
	response []byte
	log      zerolog.Logger

	interrupted atomic.Bool
	started     bool
	done        chan struct{}
}

func NewResponder(cfg Config) *Responder {
	if cfg.AdvertisePort == 0 {
		cfg.AdvertisePort = DefaultAdvertisePort
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DeviceType == "" {
		cfg.DeviceType = DefaultDeviceType
	}

	st := "urn:" + cfg.DeviceType + ":device:relay:2"

	// blank line terminator is required per the SSDP spec
	response := "HTTP/1.1 200 OK\r\n" +
		"ST: " + st + "\r\n" +
		"USN: uuid:" + uuid.NewString() + "::" + st + "\r\n" +
		"LOCATION: https://" + cfg.Host + ":" + fmt.Sprint(cfg.AdvertisePort) + "\r\n" +
		"CACHE-CONTROL: max-age=1800\r\n" +
		"DATE: " + time.Now().UTC().Format("Mon, 02 Jan 2006 03:04 GMT") + "\r\n" +
		"SERVER: " + serverName + "\r\n" +
		"EXT:\r\n" +
		"\r\n"

	return &Responder{
		host:     cfg.Host,
		port:     cfg.Port,
		st:       st,
		oneshot:  cfg.OneShot,
		response: []byte(response),
		log:      cfg.Log,
		done:     make(chan struct{}),
	}
}

// Start joins the SSDP multicast group and serves queries in the
// background until Stop, or until the first reply in one-shot mode.
func (r *Responder) Start() error {
	if r.started {
		return errors.New("ssdp: responder already started")
	}

	group := &net.UDPAddr{IP: multicastGroup, Port: r.port}

	// join on the interface owning the host address, so a multi-homed
	// machine listens on the Relay's network
	conn, err := net.ListenMulticastUDP("udp4", findInterface(net.ParseIP(r.host)), group)
	if err != nil {
		return err
	}

	r.started = true
	go r.serve(conn)
	return nil
}

// Stop interrupts the poll loop and waits for it to exit, at most one
// poll interval. Safe to call more than once.
func (r *Responder) Stop() {
	r.interrupted.Store(true)
	if r.started {
		<-r.done
	}
}

// Done closes when the loop has exited, including one-shot self-stop.
func (r *Responder) Done() <-chan struct{} {
	return r.done
}

func (r *Responder) serve(conn *net.UDPConn) {
	defer close(r.done)
	defer conn.Close()
	defer r.log.Debug().Msg("[ssdp] responder shut down")

	buf := make([]byte, 1024)

	for !r.interrupted.Load() {
		_ = conn.SetReadDeadline(time.Now().Add(pollTimeout))

		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) || r.interrupted.Load() {
				continue
			}
			// transient, keep polling
			r.log.Error().Err(err).Msg("[ssdp] read")
			continue
		}

		if !r.match(buf[:n]) {
			continue
		}

		if err = r.reply(addr); err != nil {
			r.log.Error().Err(err).Msg("[ssdp] reply")
			continue
		}

		r.log.Debug().Str("addr", addr.String()).Msg("[ssdp] replied")

		if r.oneshot {
			return
		}
	}
}

// match decodes the payload best-effort: string conversion never fails,
// invalid UTF-8 just won't match the markers.
func (r *Responder) match(b []byte) bool {
	s := string(b)
	if !strings.Contains(s, "M-SEARCH") {
		return false
	}
	// the strict variant also requires the Relay service type
	if r.oneshot && !strings.Contains(s, r.st) {
		return false
	}
	return true
}

// reply answers from a fresh short-lived socket, not the listener.
func (r *Responder) reply(addr *net.UDPAddr) error {
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write(r.response)
	return err
}

// findInterface returns the interface holding ip, or nil for the
// system default.
func findInterface(ip net.IP) *net.Interface {
	if ip == nil {
		return nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	for _, iface := range ifaces {
		addrs, _ := iface.Addrs() // range on nil slice is OK
		for _, addr := range addrs {
			if v, ok := addr.(*net.IPNet); ok && v.IP.Equal(ip) {
				i := iface
				return &i
			}
		}
	}

	return nil
}
