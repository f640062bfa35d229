package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/virtlab/virt-inventory/internal/types"
)

// Lease sources selectable through the "sources" key.
const (
	// SourceVirsh shells out to `virsh net-dhcp-leases`.
	SourceVirsh = "virsh"
	// SourceLibvirt talks to libvirt directly.
	SourceLibvirt = "libvirt"
	// SourceLeaseFile scans the network's dnsmasq lease file.
	SourceLeaseFile = "leasefile"
)

var (
	errVMNameRequired  = errors.New("vm_name is required")
	errGroupRequired   = errors.New("group is required")
	errGroupReserved   = errors.New("group name is reserved")
	errNetworkRequired = errors.New("network is required")
	errSourcesRequired = errors.New("at least one lease source is required")
	errUnknownSource   = errors.New("unknown lease source")
)

// Config holds all virt-inventory configuration.
type Config struct {
	// VMName is the libvirt domain name to resolve.
	VMName string `mapstructure:"vm_name"`

	// Group is the inventory group the VM is advertised in.
	Group string `mapstructure:"group"`

	// Network is the libvirt network whose DHCP leases are scanned.
	Network string `mapstructure:"network"`

	// AnsibleUser is the login user advertised for the VM.
	AnsibleUser string `mapstructure:"ansible_user"`

	// SSHCommonArgs are the ssh arguments advertised for the VM.
	SSHCommonArgs string `mapstructure:"ssh_common_args"`

	// LibvirtURI is the connection URI exported as LIBVIRT_DEFAULT_URI when
	// the caller did not set one.
	LibvirtURI string `mapstructure:"libvirt_uri"`

	// Sources are the lease sources tried in order until one resolves.
	Sources []string `mapstructure:"sources"`

	// LeaseFile overrides the dnsmasq lease file path used by the leasefile
	// source (empty = derived from the network name).
	LeaseFile string `mapstructure:"lease_file"`

	// LogLevel is the minimum diagnostic level: debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`
}

// DefaultConfig returns a Config with the stock libvirt defaults.
func DefaultConfig() *Config {
	return &Config{
		VMName:        "test-vm",
		Group:         "test_vm",
		Network:       "default",
		AnsibleUser:   "ubuntu",
		SSHCommonArgs: "-o StrictHostKeyChecking=no",
		LibvirtURI:    "qemu:///system",
		Sources:       []string{SourceVirsh},
		LeaseFile:     "",
		LogLevel:      "info",
	}
}

// Load reads configuration from defaults, an optional YAML config file and
// the environment (VIRTINV_ prefix, e.g. VIRTINV_VM_NAME; list values are
// comma separated).
func Load() (*Config, error) {
	defaults := DefaultConfig()
	viper.SetDefault("vm_name", defaults.VMName)
	viper.SetDefault("group", defaults.Group)
	viper.SetDefault("network", defaults.Network)
	viper.SetDefault("ansible_user", defaults.AnsibleUser)
	viper.SetDefault("ssh_common_args", defaults.SSHCommonArgs)
	viper.SetDefault("libvirt_uri", defaults.LibvirtURI)
	viper.SetDefault("sources", defaults.Sources)
	viper.SetDefault("lease_file", defaults.LeaseFile)
	viper.SetDefault("log_level", defaults.LogLevel)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/virt-inventory")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "virt-inventory"))
	}
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("VIRTINV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine, the defaults cover everything.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the tool cannot work with.
func (c *Config) Validate() error {
	if c.VMName == "" {
		return errVMNameRequired
	}

	if c.Group == "" {
		return errGroupRequired
	}

	// A group named like the reserved meta key would corrupt the document.
	if c.Group == types.MetaKey {
		return fmt.Errorf("%w: %s", errGroupReserved, types.MetaKey)
	}

	if c.Network == "" {
		return errNetworkRequired
	}

	if len(c.Sources) == 0 {
		return errSourcesRequired
	}

	for _, source := range c.Sources {
		switch source {
		case SourceVirsh, SourceLibvirt, SourceLeaseFile:
		default:
			return fmt.Errorf("%w: %s", errUnknownSource, source)
		}
	}

	return nil
}

// ConfigFileUsed returns the path of the config file being used, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
