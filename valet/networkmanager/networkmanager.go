package networkmanager

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

const (
	// ConfPath is the main NetworkManager configuration file.
	ConfPath = "/etc/NetworkManager/NetworkManager.conf"

	dnsDirective = "dns="
	dnsmasqValue = "dnsmasq"

	// DisableDnsmasqExpr comments out every dns= directive that starts a line.
	DisableDnsmasqExpr = "s/^" + dnsDirective + "/#" + dnsDirective + "/g"
)

// ManagesDnsmasq reports whether a NetworkManager configuration has a line
// starting with dns=dnsmasq, meaning NetworkManager spawns and reconfigures
// its own dnsmasq instance. Only lines DisableDnsmasqExpr rewrites count, so
// indented, spaced or upper-case variants are left alone.
func ManagesDnsmasq(content []byte) (bool, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), dnsDirective+dnsmasqValue) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("reading NetworkManager configuration: %w", err)
	}
	return false, nil
}
