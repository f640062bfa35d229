package testutil

import (
	"fmt"
	"strings"
)

// LeaseRow formats a single data row the way `virsh net-dhcp-leases` pads
// its columns.
func LeaseRow(expiry, mac, proto, addr, hostname, clientID string) string {
	return fmt.Sprintf(" %-21s %-19s %-10s %-22s %-15s %s",
		expiry, mac, proto, addr, hostname, clientID)
}

// LeaseTable renders the full output of `virsh net-dhcp-leases` for the
// given data rows: header, separator, rows and the trailing blank line.
func LeaseTable(rows ...string) string {
	b := strings.Builder{}

	b.WriteString(" Expiry Time           MAC address         Protocol   IP address             Hostname        Client ID\n")
	b.WriteString(strings.Repeat("-", 104) + "\n")

	for _, row := range rows {
		b.WriteString(row + "\n")
	}

	b.WriteString("\n")

	return b.String()
}

// DnsmasqLeaseLine formats a single line of a dnsmasq lease file.
func DnsmasqLeaseLine(epoch int64, mac, ip, hostname, clientID string) string {
	return fmt.Sprintf("%d %s %s %s %s", epoch, mac, ip, hostname, clientID)
}
