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

package adapter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/virtlab/virt-inventory/internal/types"
)

var (
	// ErrLeaseNotFound indicates no active DHCP lease matched the VM name.
	ErrLeaseNotFound = errors.New("no DHCP lease found for VM")
	// ErrVirshCommand indicates a failure to execute a virsh command.
	ErrVirshCommand = errors.New("virsh command failed")
	// ErrDomainNotFound indicates the domain is not defined in libvirt.
	ErrDomainNotFound = errors.New("domain not found")
	// ErrLeaseFile indicates a failure to read a dnsmasq lease file.
	ErrLeaseFile = errors.New("reading dnsmasq lease file")

	errDomainUUIDParse = errors.New("failed to parse domain UUID")
)

// --------------------------------------------------- INTERFACE ---------------------------------------------------- //

// Resolver resolves the IPv4 address a DHCP server leased to a named VM.
type Resolver interface {
	// ResolveIPv4 returns the IPv4 address currently leased to the VM, or an
	// error matching ErrLeaseNotFound when no lease can be attributed to it.
	ResolveIPv4(ctx context.Context, vmName string) (string, error)
}

// DomainInfo reports identity details of defined libvirt domains.
type DomainInfo interface {
	// DomainUUID returns the UUID of the named domain.
	DomainUUID(ctx context.Context, vmName string) (uuid.UUID, error)
}

// VirshResolver is a Resolver backed by the virsh command line client.
type VirshResolver interface {
	Resolver
	DomainInfo

	// Leases returns the structured rows of the network's lease table.
	Leases(ctx context.Context) ([]types.Lease, error)
}

// ------------------------------------------------- VIRSH RESOLVER ------------------------------------------------- //

// CommandRunner runs a command and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// VirshOption configures the virsh resolver.
type VirshOption func(*virshResolver)

// WithCommandRunner overrides how the resolver invokes virsh.
func WithCommandRunner(run CommandRunner) VirshOption {
	return func(r *virshResolver) {
		r.run = run
	}
}

// NewVirshResolver returns a VirshResolver that scans the lease table
// printed by `virsh net-dhcp-leases <network>`.
func NewVirshResolver(network string, opts ...VirshOption) VirshResolver {
	r := &virshResolver{
		network: network,
		run:     runCommand,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type virshResolver struct {
	network string
	run     CommandRunner
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output() //nolint:wrapcheck
}

// ResolveIPv4 scans the lease table for a line mentioning the VM name and
// returns the address portion of the line's first CIDR shaped token.
//
// The VM name is matched as a substring of the whole line, so a name that is
// a prefix of another VM's name can match the longer name's row.
func (r *virshResolver) ResolveIPv4(ctx context.Context, vmName string) (string, error) {
	output, err := r.run(ctx, "virsh", "net-dhcp-leases", r.network)
	if err != nil {
		// A failed invocation means no lease information, not a fatal error.
		return "", errors.Join(ErrLeaseNotFound, ErrVirshCommand, err)
	}

	slog.DebugContext(ctx, "scanned DHCP lease table",
		"network", r.network,
		"leases", len(types.ParseLeaseTable(string(output))))

	for _, line := range strings.Split(string(output), "\n") {
		if !strings.Contains(line, vmName) {
			continue
		}

		for _, field := range strings.Fields(line) {
			if looksLikeCIDR(field) {
				return strings.Split(field, "/")[0], nil
			}
		}
	}

	return "", errors.Join(ErrLeaseNotFound,
		fmt.Errorf("vmName=%s network=%s", vmName, r.network))
}

// Leases returns the structured rows of the network's lease table.
func (r *virshResolver) Leases(ctx context.Context) ([]types.Lease, error) {
	output, err := r.run(ctx, "virsh", "net-dhcp-leases", r.network)
	if err != nil {
		return nil, errors.Join(ErrVirshCommand, err)
	}

	return types.ParseLeaseTable(string(output)), nil
}

// DomainUUID returns the UUID of the named domain using virsh domuuid.
func (r *virshResolver) DomainUUID(ctx context.Context, vmName string) (uuid.UUID, error) {
	output, err := r.run(ctx, "virsh", "domuuid", vmName)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if strings.Contains(string(exitErr.Stderr), "Domain not found") ||
				strings.Contains(string(exitErr.Stderr), "failed to get domain") {
				return uuid.Nil, errors.Join(ErrDomainNotFound, err)
			}
		}

		return uuid.Nil, errors.Join(ErrVirshCommand, err)
	}

	id, err := uuid.Parse(strings.TrimSpace(string(output)))
	if err != nil {
		return uuid.Nil, errors.Join(errDomainUUIDParse, err)
	}

	return id, nil
}

// looksLikeCIDR reports whether a lease table token is shaped like an IPv4
// address with a prefix length, e.g. "192.168.122.50/24".
func looksLikeCIDR(token string) bool {
	return strings.Contains(token, "/") && strings.Contains(token, ".")
}

// ----------------------------------------------- LEASE FILE RESOLVER ---------------------------------------------- //

// defaultLeaseDir is where libvirt's dnsmasq instances write their lease
// files, one per network.
const defaultLeaseDir = "/var/lib/libvirt/dnsmasq"

// LeaseFileOption configures the lease file resolver.
type LeaseFileOption func(*leaseFileResolver)

// WithLeaseFilePath overrides the lease file location.
func WithLeaseFilePath(path string) LeaseFileOption {
	return func(r *leaseFileResolver) {
		if path != "" {
			r.path = path
		}
	}
}

// NewLeaseFileResolver returns a Resolver that scans the dnsmasq lease file
// of the given network directly. Useful on hosts where the virsh client is
// not installed.
func NewLeaseFileResolver(network string, opts ...LeaseFileOption) Resolver {
	r := &leaseFileResolver{
		path: filepath.Join(defaultLeaseDir, network+".leases"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type leaseFileResolver struct {
	path string
}

// ResolveIPv4 scans the lease file for a line mentioning the VM name and
// returns its address column. Lines are formatted as
// "<expiry epoch> <mac> <ip> <hostname> <client-id>".
func (r *leaseFileResolver) ResolveIPv4(_ context.Context, vmName string) (string, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return "", errors.Join(ErrLeaseNotFound, ErrLeaseFile, err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, vmName) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		return fields[2], nil
	}

	if err := scanner.Err(); err != nil {
		return "", errors.Join(ErrLeaseNotFound, ErrLeaseFile, err)
	}

	return "", errors.Join(ErrLeaseNotFound,
		fmt.Errorf("vmName=%s leaseFile=%s", vmName, r.path))
}
