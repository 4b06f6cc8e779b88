package main

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

const defaultPort = 8080

// guessIpAddress takes a base IP address and a partial address string,
// and fills in the missing octets from the base address.
func guessIpAddress(baseAddress net.IP, partialAddr string) (net.IP, error) {
	ip := make(net.IP, len(baseAddress))
	copy(ip, baseAddress)
	octets := strings.Split(partialAddr, ".")
	if len(octets) == 1 && octets[0] == "" {
		return ip, nil
	}
	if len(octets) > 4 {
		return net.IP{}, fmt.Errorf("too many octets in %q", partialAddr)
	}
	for i := 0; i < len(octets); i++ {
		var octet byte
		_, err := fmt.Sscanf(octets[i], "%d", &octet)
		if err != nil {
			return net.IP{}, err
		}
		ip[len(ip)-len(octets)+i] = octet
	}
	return ip, nil
}

// subnetOfListener returns the IP network (CIDR) of the interface that contains
// the local address used by the provided TCP listener.
func subnetOfListener(l *net.TCPListener) (net.IPNet, error) {
	tcpAddr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return net.IPNet{}, fmt.Errorf("listener is not TCP")
	}
	ip := tcpAddr.IP
	if ip == nil || ip.IsUnspecified() {
		return net.IPNet{}, fmt.Errorf("listener has unspecified IP %v", ip)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return net.IPNet{}, err
	}
	for _, ifi := range ifaces {
		addrs, _ := ifi.Addrs()
		if ipnet, ok := subnetContaining(addrs, ip); ok {
			return ipnet, nil
		}
	}
	return net.IPNet{}, fmt.Errorf("no interface found for ip %v", ip)
}

// subnetContaining returns the network among an interface's addrs that
// contains ip.
func subnetContaining(addrs []net.Addr, ip net.IP) (net.IPNet, bool) {
	for _, a := range addrs {
		var ipnet *net.IPNet
		switch v := a.(type) {
		case *net.IPNet:
			ipnet = v
		case *net.IPAddr:
			if v == nil {
				continue
			}
			ipnet = &net.IPNet{IP: v.IP, Mask: v.IP.DefaultMask()}
		default:
			continue
		}
		if ipnet == nil {
			continue
		}
		if ipnet.Contains(ip) || ipnet.IP.Equal(ip) {
			return *ipnet, true
		}
	}
	return net.IPNet{}, false
}

// splitHostPort splits an address into host and port, using defaultPort if no port is specified.
func splitHostPort(addr string, defaultPort int) (string, string, error) {
	ipaddr, port, err := net.SplitHostPort(addr)
	if err != nil {
		addr = addr + ":" + strconv.Itoa(defaultPort)
		ipaddr, port, err = net.SplitHostPort(addr)
		if err != nil {
			return "", "", err
		}
	}
	return ipaddr, port, nil
}

// serverURL turns what a player typed into a referee base URL. A full URL is
// kept as is; otherwise the port defaults to defaultPort and a partial IPv4
// address such as "42" or "1.42" is completed from local.
func serverURL(addr string, local net.IP, secure bool) (string, error) {
	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(u.String(), "/"), nil
	}
	host, port, err := splitHostPort(addr, defaultPort)
	if err != nil {
		return "", err
	}
	if partialIPv4(host) {
		base := local.To4()
		if base == nil {
			return "", fmt.Errorf("could not guess address for %s: no local IPv4 address", addr)
		}
		ip, err := guessIpAddress(base, host)
		if err != nil {
			return "", fmt.Errorf("could not guess address for %s: %w", addr, err)
		}
		host = ip.String()
	}
	scheme := "http"
	if secure {
		scheme = "https"
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}

func partialIPv4(host string) bool {
	if host == "" || net.ParseIP(host) != nil {
		return false
	}
	return strings.Trim(host, "0123456789.") == ""
}

// outboundIP is the local address used to reach the LAN. No packet is sent.
func outboundIP() net.IP {
	conn, err := net.Dial("udp", "192.0.2.1:9")
	if err != nil {
		return nil
	}
	defer conn.Close()
	if a, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return a.IP
	}
	return nil
}
