package util

import (
	"fmt"
	"net"
	"strconv"
)

// CheckAddr verifies that addr has the form host:port with a numeric
// port in 0-65535.  An empty host means all interfaces.
func CheckAddr(addr string) error {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return fmt.Errorf("invalid port %q", p)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d out of range 0-65535", port)
	}
	return nil
}
