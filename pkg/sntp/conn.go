package sntp

import (
	"errors"
	"net"
	"strings"

	"golang.org/x/net/ipv4"
)

// udpConn wraps the responder socket. On IPv4 sockets it enables packet info
// so replies leave from the address the request was sent to.
type udpConn struct {
	raw *net.UDPConn
	pc4 *ipv4.PacketConn // nil when packet info is unavailable
}

func listenUDP(addr string) (*udpConn, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	// Go binds 0.0.0.0 as a dual-stack socket on "udp", which has no IPv4
	// packet info.
	network := "udp"
	if laddr.IP != nil && laddr.IP.To4() != nil {
		network = "udp4"
	}
	raw, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return newUDPConn(raw), nil
}

func newUDPConn(raw *net.UDPConn) *udpConn {
	u := &udpConn{raw: raw}
	local, ok := raw.LocalAddr().(*net.UDPAddr)
	if !ok || local.IP.To4() == nil {
		return u
	}
	pc4 := ipv4.NewPacketConn(raw)
	if err := pc4.SetControlMessage(ipv4.FlagDst, true); err != nil {
		return u
	}
	u.pc4 = pc4
	return u
}

func (u *udpConn) Close() error { return u.raw.Close() }

func (u *udpConn) LocalAddr() *net.UDPAddr {
	return u.raw.LocalAddr().(*net.UDPAddr)
}

// ReadFrom reads one datagram and returns the sender and, when known, the
// local address it was sent to.
func (u *udpConn) ReadFrom(buf []byte) (n int, remote *net.UDPAddr, localIP net.IP, err error) {
	if u.pc4 == nil {
		n, remote, err = u.raw.ReadFromUDP(buf)
		return n, remote, nil, err
	}

	n, cm, raddr, err := u.pc4.ReadFrom(buf)
	if err != nil {
		return 0, nil, nil, err
	}
	if ua, ok := raddr.(*net.UDPAddr); ok {
		remote = ua
	}
	if cm != nil && cm.Dst != nil {
		localIP = cm.Dst
	}
	return n, remote, localIP, nil
}

// WriteTo sends pkt to dst with src as the source address when src is a usable
// unicast address. A pinned send that the kernel rejects (for example a
// request sent to a subnet broadcast address) is retried unpinned.
func (u *udpConn) WriteTo(pkt []byte, dst *net.UDPAddr, src net.IP) (int, error) {
	if dst == nil {
		return 0, errors.New("nil destination")
	}
	if u.pc4 == nil || !pinnable(src) {
		return u.raw.WriteToUDP(pkt, dst)
	}

	n, err := u.pc4.WriteTo(pkt, &ipv4.ControlMessage{Src: src.To4()}, dst)
	if err != nil && !isClosedErr(err) {
		return u.raw.WriteToUDP(pkt, dst)
	}
	return n, err
}

func pinnable(ip net.IP) bool {
	if ip == nil || ip.To4() == nil {
		return false
	}
	return !ip.IsUnspecified() && !ip.IsMulticast() && !ip.Equal(net.IPv4bcast)
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection")
}
