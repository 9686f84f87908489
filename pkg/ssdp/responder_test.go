package ssdp

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRenderResponse(t *testing.T) {
	r := NewResponder(Config{Host: "192.168.1.5", Log: zerolog.Nop()})

	s := string(r.response)
	require.True(t, strings.HasPrefix(s, "HTTP/1.1 200 OK\r\n"))
	require.True(t, strings.HasSuffix(s, "EXT:\r\n\r\n"))
	require.Contains(t, s, "ST: urn:wink-com:device:relay:2\r\n")
	require.Contains(t, s, "USN: uuid:")
	require.Contains(t, s, "::urn:wink-com:device:relay:2\r\n")
	require.Contains(t, s, "LOCATION: https://192.168.1.5:8888\r\n")
	require.Contains(t, s, "CACHE-CONTROL: max-age=1800\r\n")
	require.Contains(t, s, "SERVER: "+serverName+"\r\n")

	// template is rendered once, identifiers differ between responders
	r2 := NewResponder(Config{Host: "192.168.1.5", Log: zerolog.Nop()})
	require.NotEqual(t, r.response, r2.response)
}

func TestMatch(t *testing.T) {
	r := NewResponder(Config{Host: "192.168.1.5", Log: zerolog.Nop()})

	require.True(t, r.match([]byte("M-SEARCH * HTTP/1.1\r\nST: ssdp:all\r\n\r\n")))
	require.False(t, r.match([]byte("NOTIFY * HTTP/1.1\r\n\r\n")))
	require.True(t, r.match([]byte{0xFF, 0xFE, 'M', '-', 'S', 'E', 'A', 'R', 'C', 'H', 0xFF}))

	strict := NewResponder(Config{Host: "192.168.1.5", OneShot: true, Log: zerolog.Nop()})
	require.False(t, strict.match([]byte("M-SEARCH * HTTP/1.1\r\nST: ssdp:all\r\n\r\n")))
	require.True(t, strict.match([]byte("M-SEARCH * HTTP/1.1\r\nST: urn:wink-com:device:relay:2\r\n\r\n")))
}

// startLocal runs the poll loop on a loopback socket instead of the
// multicast group.
func startLocal(t *testing.T, r *Responder) *net.UDPAddr {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IP{127, 0, 0, 1}})
	require.NoError(t, err)

	r.started = true
	go r.serve(conn)

	return conn.LocalAddr().(*net.UDPAddr)
}

func query(t *testing.T, addr *net.UDPAddr, payload string) *net.UDPConn {
	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IP{127, 0, 0, 1}})
	require.NoError(t, err)

	_, err = client.WriteToUDP([]byte(payload), addr)
	require.NoError(t, err)

	return client
}

func TestServeReply(t *testing.T) {
	r := NewResponder(Config{Host: "127.0.0.1", Log: zerolog.Nop()})
	defer r.Stop()

	addr := startLocal(t, r)

	client := query(t, addr, "M-SEARCH * HTTP/1.1\r\nST: ssdp:all\r\n\r\n")
	defer client.Close()

	buf := make([]byte, 1024)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(pollTimeout)))
	n, _, err := client.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, r.response, buf[:n])
}

func TestServeNoMatch(t *testing.T) {
	r := NewResponder(Config{Host: "127.0.0.1", Log: zerolog.Nop()})
	defer r.Stop()

	addr := startLocal(t, r)

	client := query(t, addr, "NOTIFY * HTTP/1.1\r\n\r\n")
	defer client.Close()

	buf := make([]byte, 1024)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(500*time.Millisecond)))
	_, _, err := client.ReadFromUDP(buf)
	require.Error(t, err) // zero replies for a non-matching datagram
}

func TestOneShot(t *testing.T) {
	r := NewResponder(Config{Host: "127.0.0.1", OneShot: true, Log: zerolog.Nop()})

	addr := startLocal(t, r)

	client := query(t, addr, "M-SEARCH * HTTP/1.1\r\nST: urn:wink-com:device:relay:2\r\n\r\n")
	defer client.Close()

	buf := make([]byte, 1024)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(pollTimeout)))
	n, _, err := client.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, r.response, buf[:n])

	// self-terminates after exactly one reply
	select {
	case <-r.Done():
	case <-time.After(pollTimeout):
		t.Fatal("one-shot responder did not stop")
	}

	r.Stop() // no-op after self-stop
}

func TestFindInterface(t *testing.T) {
	require.Nil(t, findInterface(nil))
	require.Nil(t, findInterface(net.ParseIP("203.0.113.77"))) // TEST-NET, never local

	// every local address resolves to the interface that owns it
	ifaces, err := net.Interfaces()
	require.NoError(t, err)
	for _, iface := range ifaces {
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			v, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			got := findInterface(v.IP)
			require.NotNil(t, got, v.IP.String())
			require.Equal(t, iface.Name, got.Name, v.IP.String())
		}
	}
}

func TestStopTwice(t *testing.T) {
	r := NewResponder(Config{Host: "127.0.0.1", Log: zerolog.Nop()})
	startLocal(t, r)

	done := make(chan struct{})
	go func() {
		r.Stop()
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * pollTimeout):
		t.Fatal("Stop did not return")
	}
}
