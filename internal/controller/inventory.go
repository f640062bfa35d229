/*
Copyright 2025 The virt-inventory Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/virtlab/virt-inventory/internal/adapter"
	"github.com/virtlab/virt-inventory/internal/types"
)

// ---------------------------------------------------- INTERFACES -------------------------------------------------- //

// Inventory assembles the Ansible inventory document for the managed VM.
type Inventory interface {
	// Build resolves the VM's leased address and assembles the inventory
	// document. Resolution failures degrade to the empty document, never to
	// an error: a broken hypervisor must not break the calling playbook.
	Build(ctx context.Context) types.Inventory
}

// Target describes the VM the inventory advertises and the connection
// variables published for it.
type Target struct {
	// VMName is the libvirt domain name to resolve.
	VMName string
	// Group is the inventory group the host is placed in.
	Group string
	// AnsibleUser is the login user advertised for the host.
	AnsibleUser string
	// SSHCommonArgs are the ssh arguments advertised for the host.
	SSHCommonArgs string
}

// --------------------------------------------------- CONSTRUCTORS ------------------------------------------------- //

// Option configures the inventory controller.
type Option func(*inventory)

// WithDomainInfo enables best effort debug logging of the resolved domain's
// identity.
func WithDomainInfo(info adapter.DomainInfo) Option {
	return func(i *inventory) {
		i.domainInfo = info
	}
}

// NewInventory returns a new Inventory resolving addresses through the given
// resolvers, in order, until one succeeds.
func NewInventory(target Target, resolvers []adapter.Resolver, opts ...Option) Inventory {
	i := &inventory{
		target:    target,
		resolvers: resolvers,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// ------------------------------------------------------ INVENTORY ------------------------------------------------- //

type inventory struct {
	target     Target
	resolvers  []adapter.Resolver
	domainInfo adapter.DomainInfo
}

func (i *inventory) Build(ctx context.Context) types.Inventory {
	ip, err := i.resolve(ctx)
	if err != nil {
		slog.WarnContext(ctx, "could not detect IP for VM",
			"vmName", i.target.VMName,
			"error", err.Error(),
		)

		return types.EmptyInventory()
	}

	slog.DebugContext(ctx, "lease_resolved",
		"vmName", i.target.VMName,
		"ip", ip,
	)

	i.logDomainIdentity(ctx)

	return types.NewInventory(i.target.Group, i.target.VMName, types.HostVars{
		AnsibleHost:          ip,
		AnsibleUser:          i.target.AnsibleUser,
		AnsibleSSHCommonArgs: i.target.SSHCommonArgs,
	})
}

func (i *inventory) resolve(ctx context.Context) (string, error) {
	var errs error

	for _, resolver := range i.resolvers {
		ip, err := resolver.ResolveIPv4(ctx, i.target.VMName)
		if err != nil {
			errs = errors.Join(errs, err)

			continue
		}

		return ip, nil
	}

	if errs == nil {
		errs = adapter.ErrLeaseNotFound
	}

	return "", errs
}

// logDomainIdentity logs the domain's UUID at debug level. Best effort: the
// inventory document never depends on this lookup.
func (i *inventory) logDomainIdentity(ctx context.Context) {
	if i.domainInfo == nil {
		return
	}

	id, err := i.domainInfo.DomainUUID(ctx, i.target.VMName)
	if err != nil {
		slog.DebugContext(ctx, "domain_uuid_unavailable",
			"vmName", i.target.VMName,
			"error", err.Error(),
		)

		return
	}

	slog.DebugContext(ctx, "domain_resolved",
		"vmName", i.target.VMName,
		"uuid", id.String(),
	)
}
