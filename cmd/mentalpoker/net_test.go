package main

import (
	"net"
	"testing"
)

func TestGuessIpAddress24(t *testing.T) {
	addr := net.IP{192, 168, 0, 1}
	actual, err := guessIpAddress(addr, "42")
	if err != nil {
		t.Fatal(err)
	}
	expected := net.IP{192, 168, 0, 42}
	if !actual.Equal(expected) {
		t.Fatalf("expected %v, actual %v", expected, actual)
	}
}

func TestGuessIpAddress16(t *testing.T) {
	addr := net.IP{192, 168, 0, 1}
	actual, err := guessIpAddress(addr, "15.42")
	if err != nil {
		t.Fatal(err)
	}
	expected := net.IP{192, 168, 15, 42}
	if !actual.Equal(expected) {
		t.Fatalf("expected %v, actual %v", expected, actual)
	}
}

func TestGuessIpAddress0(t *testing.T) {
	addr := net.IP{192, 168, 0, 1}
	actual, err := guessIpAddress(addr, "10.100.15.42")
	if err != nil {
		t.Fatal(err)
	}
	expected := net.IP{10, 100, 15, 42}
	if !actual.Equal(expected) {
		t.Fatalf("expected %v, actual %v", expected, actual)
	}
}

func TestGuessIpAddress32(t *testing.T) {
	addr := net.IP{192, 168, 0, 1}
	actual, err := guessIpAddress(addr, "")
	if err != nil {
		t.Fatal(err)
	}
	if !actual.Equal(addr) {
		t.Fatalf("expected %v, actual %v", addr, actual)
	}
}

func TestGuessIpAddressTooLong(t *testing.T) {
	if _, err := guessIpAddress(net.IP{192, 168, 0, 1}, "1.2.3.4.5"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSubnetOfListener(t *testing.T) {
	l, err := net.ListenTCP("tcp", &net.TCPAddr{
		IP:   net.ParseIP("127.0.0.1"),
		Port: 0,
	})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	ipnet, err := subnetOfListener(l)
	if err != nil {
		t.Fatalf("subnetOfListener error: %v", err)
	}
	t.Logf("listener local addr: %v, subnet: %s", l.Addr(), ipnet.String())

	if !ipnet.Contains(net.ParseIP("127.0.0.1")) {
		t.Fatalf("expected subnet %s to contain 127.0.0.1", ipnet.String())
	}
}

func TestSubnetContainingSkipsNilAddresses(t *testing.T) {
	_, lan, _ := net.ParseCIDR("192.168.1.0/24")
	addrs := []net.Addr{(*net.IPNet)(nil), (*net.IPAddr)(nil), lan}

	ipnet, ok := subnetContaining(addrs, net.ParseIP("192.168.1.7"))
	if !ok {
		t.Fatal("expected a subnet")
	}
	if ipnet.String() != "192.168.1.0/24" {
		t.Fatalf("expected 192.168.1.0/24, got %s", ipnet.String())
	}
	if _, ok := subnetContaining(addrs[:2], net.ParseIP("192.168.1.7")); ok {
		t.Fatal("expected no subnet among nil addresses")
	}
}

func TestServerURL(t *testing.T) {
	local := net.IP{192, 168, 1, 10}
	tests := []struct {
		addr   string
		secure bool
		want   string
	}{
		{"https://referee.example:9443/", false, "https://referee.example:9443"},
		{"localhost", false, "http://localhost:8080"},
		{"referee.example:9000", true, "https://referee.example:9000"},
		{"7", false, "http://192.168.1.7:8080"},
		{"2.7:9000", false, "http://192.168.2.7:9000"},
		{"10.0.0.3", false, "http://10.0.0.3:8080"},
	}
	for _, tt := range tests {
		got, err := serverURL(tt.addr, local, tt.secure)
		if err != nil {
			t.Fatalf("%s: %v", tt.addr, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %s, actual %s", tt.addr, tt.want, got)
		}
	}
	if _, err := serverURL("7", nil, false); err == nil {
		t.Error("expected an error without a local address")
	}
}

func TestAdvertised(t *testing.T) {
	bound := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
	if got := advertised(bound); got != "127.0.0.1:8080" {
		t.Fatalf("expected 127.0.0.1:8080, actual %s", got)
	}
	host, port, err := net.SplitHostPort(advertised(&net.TCPAddr{IP: net.IPv4zero, Port: 9000}))
	if err != nil {
		t.Fatal(err)
	}
	if port != "9000" || net.ParseIP(host).IsUnspecified() {
		t.Fatalf("expected a concrete host on port 9000, actual %s:%s", host, port)
	}
}
