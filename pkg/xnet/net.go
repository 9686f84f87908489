package xnet

import (
	"errors"
	"net"
)

// Docker has common docker addresses (class B):
// https://en.wikipedia.org/wiki/Private_network
// - docker0 172.17.0.1/16
// - br-xxxx 172.18.0.1/16
// - hassio  172.30.32.1/23
var Docker = net.IPNet{
	IP:   []byte{172, 16, 0, 0},
	Mask: []byte{255, 240, 0, 0},
}

// ParseMask parses a dotted-quad netmask (ex. "255.255.255.0").
// Non-contiguous masks are rejected.
func ParseMask(s string) (net.IPMask, error) {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return nil, errors.New("xnet: invalid netmask: " + s)
	}

	mask := net.IPMask(ip.To4())
	if ones, bits := mask.Size(); ones == 0 && bits == 0 {
		return nil, errors.New("xnet: non-contiguous netmask: " + s)
	}

	return mask, nil
}

// BroadcastAddr returns the directed broadcast address for ip within mask
// (ex. 192.168.1.5/255.255.255.0 => 192.168.1.255).
func BroadcastAddr(ip net.IP, mask net.IPMask) net.IP {
	ip = ip.To4()
	if ip == nil || len(mask) != net.IPv4len {
		return nil
	}

	bcast := make(net.IP, net.IPv4len)
	for i := range bcast {
		bcast[i] = ip[i] | ^mask[i]
	}
	return bcast
}

func IPNets(ipFilter func(ip net.IP) bool) ([]*net.IPNet, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var nets []*net.IPNet

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, _ := iface.Addrs() // range on nil slice is OK
		for _, addr := range addrs {
			switch v := addr.(type) {
			case *net.IPNet:
				ip := v.IP.To4()
				if ip == nil {
					continue
				}
				if ipFilter != nil && !ipFilter(ip) {
					continue
				}
				nets = append(nets, v)
			}
		}
	}

	return nets, nil
}
