//go:build integration

package adapter_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/virtlab/virt-inventory/internal/adapter"
)

// Integration tests require a running libvirtd with the default network
// active, and the virsh client on PATH.

func TestVirshResolver_Integration(t *testing.T) {
	resolver := adapter.NewVirshResolver("default")

	_, err := resolver.ResolveIPv4(context.Background(), "vm-"+uuid.NewString()[:8])
	require.ErrorIs(t, err, adapter.ErrLeaseNotFound)
}

func TestVirshResolver_DomainUUID_Integration(t *testing.T) {
	resolver := adapter.NewVirshResolver("default")

	_, err := resolver.DomainUUID(context.Background(), "vm-"+uuid.NewString()[:8])
	require.ErrorIs(t, err, adapter.ErrDomainNotFound)
}

func TestVirshResolver_Leases_Integration(t *testing.T) {
	resolver := adapter.NewVirshResolver("default")

	_, err := resolver.Leases(context.Background())
	require.NoError(t, err)
}

func TestLibvirtResolver_Integration(t *testing.T) {
	resolver := adapter.NewLibvirtResolver("default", adapter.WithURI("qemu:///system"))

	_, err := resolver.ResolveIPv4(context.Background(), "vm-"+uuid.NewString()[:8])
	require.ErrorIs(t, err, adapter.ErrLeaseNotFound)
}
