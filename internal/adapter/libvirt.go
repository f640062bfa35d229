package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"libvirt.org/go/libvirt"
	"libvirt.org/go/libvirtxml"
)

// Error variables for the libvirt API resolver
var (
	ErrLibvirtConnect  = errors.New("failed to connect to libvirt")
	ErrNetworkLookup   = errors.New("failed to lookup libvirt network")
	ErrNetworkNotFound = errors.New("libvirt network not found")
	ErrNetworkLeases   = errors.New("failed to list network DHCP leases")
)

// LibvirtOption configures the libvirt resolver.
type LibvirtOption func(*libvirtResolver)

// WithURI sets the libvirt connection URI. An empty URI lets the client
// honor LIBVIRT_DEFAULT_URI.
func WithURI(uri string) LibvirtOption {
	return func(r *libvirtResolver) {
		r.uri = uri
	}
}

// NewLibvirtResolver returns a Resolver that talks to libvirt directly
// instead of shelling out to virsh. A connection is opened per call and
// closed before returning.
func NewLibvirtResolver(network string, opts ...LibvirtOption) Resolver {
	r := &libvirtResolver{network: network}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type libvirtResolver struct {
	network string
	uri     string
}

// ResolveIPv4 asks libvirt for the VM's leased IPv4 address. The domain's
// own lease records are consulted first; when the domain cannot be found or
// reports no address, the network's lease table is scanned, matching the
// domain's MAC addresses before falling back to the reported hostname.
func (r *libvirtResolver) ResolveIPv4(ctx context.Context, vmName string) (string, error) {
	conn, err := libvirt.NewConnect(r.uri)
	if err != nil {
		return "", errors.Join(ErrLeaseNotFound, ErrLibvirtConnect, err)
	}
	defer func() { _, _ = conn.Close() }()

	macs := make([]string, 0)

	if dom, err := conn.LookupDomainByName(vmName); err == nil {
		if ip, ok := domainLeasedIPv4(dom); ok {
			_ = dom.Free()
			return ip, nil
		}

		macs = domainMACs(dom)
		_ = dom.Free()
	}

	lease, err := r.findNetworkLease(conn, vmName, macs)
	if err != nil {
		return "", err
	}

	return lease.IPaddr, nil
}

// domainLeasedIPv4 returns the first IPv4 address the DHCP server leased to
// the domain.
func domainLeasedIPv4(dom *libvirt.Domain) (string, bool) {
	ifaces, err := dom.ListAllInterfaceAddresses(
		libvirt.DOMAIN_INTERFACE_ADDRESSES_SRC_LEASE,
	)
	if err != nil {
		return "", false
	}

	for _, iface := range ifaces {
		for _, addr := range iface.Addrs {
			if addr.Type == libvirt.IP_ADDR_TYPE_IPV4 {
				return strings.Split(addr.Addr, "/")[0], true
			}
		}
	}

	return "", false
}

// domainMACs extracts the MAC addresses of the domain's interfaces from its
// XML definition.
func domainMACs(dom *libvirt.Domain) []string {
	xmlDesc, err := dom.GetXMLDesc(0)
	if err != nil {
		return nil
	}

	domXML := libvirtxml.Domain{}
	if err := domXML.Unmarshal(xmlDesc); err != nil {
		return nil
	}

	if domXML.Devices == nil {
		return nil
	}

	macs := make([]string, 0, len(domXML.Devices.Interfaces))

	for _, iface := range domXML.Devices.Interfaces {
		if iface.MAC != nil && iface.MAC.Address != "" {
			macs = append(macs, iface.MAC.Address)
		}
	}

	return macs
}

// findNetworkLease scans the network's DHCP lease table. MAC matches take
// precedence over hostname matches.
func (r *libvirtResolver) findNetworkLease(
	conn *libvirt.Connect,
	vmName string,
	macs []string,
) (libvirt.NetworkDHCPLease, error) {
	network, err := conn.LookupNetworkByName(r.network)
	if err != nil {
		libvirtErr, ok := err.(libvirt.Error)
		if ok && libvirtErr.Code == libvirt.ERR_NO_NETWORK {
			return libvirt.NetworkDHCPLease{}, errors.Join(ErrLeaseNotFound, ErrNetworkNotFound, err)
		}

		return libvirt.NetworkDHCPLease{}, errors.Join(ErrLeaseNotFound, ErrNetworkLookup, err)
	}
	defer func() { _ = network.Free() }()

	leases, err := network.GetDHCPLeases()
	if err != nil {
		return libvirt.NetworkDHCPLease{}, errors.Join(ErrLeaseNotFound, ErrNetworkLeases, err)
	}

	lease, ok := matchLease(leases, vmName, macs)
	if !ok {
		return libvirt.NetworkDHCPLease{}, errors.Join(ErrLeaseNotFound,
			fmt.Errorf("vmName=%s network=%s", vmName, r.network))
	}

	return lease, nil
}

// matchLease picks the IPv4 lease belonging to the domain. A lease carrying
// one of the domain's MAC addresses wins over a lease whose hostname equals
// the domain name.
func matchLease(
	leases []libvirt.NetworkDHCPLease,
	vmName string,
	macs []string,
) (libvirt.NetworkDHCPLease, bool) {
	var hostnameMatch *libvirt.NetworkDHCPLease

	for i, lease := range leases {
		if lease.Type != libvirt.IP_ADDR_TYPE_IPV4 {
			continue
		}

		for _, mac := range macs {
			if strings.EqualFold(lease.Mac, mac) {
				return lease, true
			}
		}

		if hostnameMatch == nil && lease.Hostname == vmName {
			hostnameMatch = &leases[i]
		}
	}

	if hostnameMatch != nil {
		return *hostnameMatch, true
	}

	return libvirt.NetworkDHCPLease{}, false
}
