// Copyright 2025 The virt-inventory Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import "strings"

// leaseRowTokens is the token count of a well-formed lease table row: six
// columns, with the expiry timestamp splitting into a date and a time token.
const leaseRowTokens = 7

// Lease is a single row of the table printed by `virsh net-dhcp-leases`.
//
// Column order: expiry time, MAC address, protocol, IP address, hostname,
// client ID.
type Lease struct {
	// Expiry is the lease expiry timestamp as reported by the hypervisor,
	// e.g. "2026-01-15 10:30:01".
	Expiry string
	// MAC is the MAC address of the leased interface.
	MAC string
	// Type is the address protocol, e.g. "ipv4".
	Type string
	// Address is the leased address in CIDR notation, e.g. "192.168.122.50/24".
	Address string
	// Hostname is the hostname the client reported, or "-" when unknown.
	Hostname string
	// ClientID is the DHCP client ID or DUID, or "-" when unknown.
	ClientID string

	// Raw is the unparsed source line the lease was read from.
	Raw string
}

// IPv4 returns the address portion of the lease with the CIDR prefix length
// stripped.
func (l Lease) IPv4() string {
	return strings.Split(l.Address, "/")[0]
}

// ParseLeaseTable parses the tabular output of `virsh net-dhcp-leases` into
// structured lease records. Header, separator and otherwise malformed lines
// are skipped.
func ParseLeaseTable(table string) []Lease {
	leases := make([]Lease, 0)

	for _, line := range strings.Split(table, "\n") {
		lease, ok := parseLeaseRow(line)
		if !ok {
			continue
		}

		leases = append(leases, lease)
	}

	return leases
}

func parseLeaseRow(line string) (Lease, bool) {
	fields := strings.Fields(line)
	if len(fields) != leaseRowTokens {
		return Lease{}, false
	}

	// The header row also tokenizes to a plausible width; the address column
	// is the discriminator.
	if !strings.Contains(fields[4], "/") {
		return Lease{}, false
	}

	return Lease{
		Expiry:   fields[0] + " " + fields[1],
		MAC:      fields[2],
		Type:     fields[3],
		Address:  fields[4],
		Hostname: fields[5],
		ClientID: fields[6],
		Raw:      line,
	}, true
}
