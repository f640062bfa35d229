package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	setup := func(t *testing.T) {
		t.Helper()

		viper.Reset()
		t.Setenv("HOME", t.TempDir())
		t.Chdir(t.TempDir())
	}

	t.Run("defaults", func(t *testing.T) {
		setup(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("environment overrides", func(t *testing.T) {
		setup(t)

		t.Setenv("VIRTINV_VM_NAME", "worker-0")
		t.Setenv("VIRTINV_ANSIBLE_USER", "debian")
		t.Setenv("VIRTINV_SOURCES", "virsh,leasefile")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "worker-0", cfg.VMName)
		assert.Equal(t, "debian", cfg.AnsibleUser)
		assert.Equal(t, []string{SourceVirsh, SourceLeaseFile}, cfg.Sources)
	})

	t.Run("config file in working directory", func(t *testing.T) {
		setup(t)

		configYAML := `
vm_name: build-vm
group: build
ansible_user: debian
sources:
  - libvirt
  - virsh
`
		require.NoError(t, os.WriteFile("config.yaml", []byte(configYAML), 0o644))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "build-vm", cfg.VMName)
		assert.Equal(t, "build", cfg.Group)
		assert.Equal(t, "debian", cfg.AnsibleUser)
		assert.Equal(t, []string{SourceLibvirt, SourceVirsh}, cfg.Sources)

		// Keys the file does not set keep their defaults.
		assert.Equal(t, "default", cfg.Network)
		assert.Equal(t, "qemu:///system", cfg.LibvirtURI)

		assert.Equal(t, "config.yaml", filepath.Base(ConfigFileUsed()))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		setup(t)

		require.NoError(t, os.WriteFile("config.yaml", []byte("sources: ["), 0o644))

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("invalid source is rejected", func(t *testing.T) {
		setup(t)

		t.Setenv("VIRTINV_SOURCES", "dns")

		_, err := Load()
		require.ErrorIs(t, err, errUnknownSource)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "missing vm name",
			mutate:  func(c *Config) { c.VMName = "" },
			wantErr: errVMNameRequired,
		},
		{
			name:    "missing group",
			mutate:  func(c *Config) { c.Group = "" },
			wantErr: errGroupRequired,
		},
		{
			name:    "reserved group name",
			mutate:  func(c *Config) { c.Group = "_meta" },
			wantErr: errGroupReserved,
		},
		{
			name:    "missing network",
			mutate:  func(c *Config) { c.Network = "" },
			wantErr: errNetworkRequired,
		},
		{
			name:    "no sources",
			mutate:  func(c *Config) { c.Sources = nil },
			wantErr: errSourcesRequired,
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.Sources = []string{SourceVirsh, "dns"} },
			wantErr: errUnknownSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
