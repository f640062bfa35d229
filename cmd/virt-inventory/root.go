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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/virtlab/virt-inventory/internal/adapter"
	"github.com/virtlab/virt-inventory/internal/config"
	"github.com/virtlab/virt-inventory/internal/controller"
	"github.com/virtlab/virt-inventory/internal/types"
	"github.com/virtlab/virt-inventory/internal/util/logging"
)

const libvirtURIEnvKey = "LIBVIRT_DEFAULT_URI"

var errUsage = errors.New("either --list or --host must be specified")

// ------------------------------------------------- Command -------------------------------------------------------- //

func newRootCmd() *cobra.Command {
	var (
		cfg  *config.Config
		list bool
		host string
	)

	cmd := &cobra.Command{
		Use:   Name,
		Short: "Ansible dynamic inventory for libvirt guests",
		Long: Name + ` resolves the DHCP lease of a libvirt guest and prints an
Ansible dynamic inventory document on stdout.

The inventory contains a single group with a single host whose ansible_host
is the guest's leased IPv4 address. When no lease can be found the inventory
is empty rather than an error, so playbooks keep working while the guest is
down.`,
		// executeRoot prints usage on the error stream instead.
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}

			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}

			logger := logging.Setup(logging.Options{Level: level})
			logger.V(1).Info("starting",
				"binary", Name,
				"version", Version,
				"commit", CommitSHA,
				"configFile", config.ConfigFileUsed(),
				"vmName", cfg.VMName,
				"sources", cfg.Sources)

			return exportLibvirtURI(cfg.LibvirtURI)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case list:
				return runList(cmd.Context(), cfg, cmd.OutOrStdout())
			case cmd.Flags().Changed("host"):
				return runHost(cmd.OutOrStdout())
			default:
				return errUsage
			}
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "print the full inventory document")
	cmd.Flags().StringVar(&host, "host", "", "print the variables of a single host")
	cmd.MarkFlagsMutuallyExclusive("list", "host")

	return cmd
}

// executeRoot runs the root command. On failure the usage block is printed to
// the command's error stream: stdout carries inventory documents only.
func executeRoot(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		cmd.PrintErrln(cmd.UsageString())
	}

	return err
}

// ------------------------------------------------- Run ------------------------------------------------------------ //

func runList(ctx context.Context, cfg *config.Config, out io.Writer) error {
	resolvers, domainInfo := buildResolvers(cfg)

	opts := make([]controller.Option, 0, 1)
	if domainInfo != nil {
		opts = append(opts, controller.WithDomainInfo(domainInfo))
	}

	inv := controller.NewInventory(controller.Target{
		VMName:        cfg.VMName,
		Group:         cfg.Group,
		AnsibleUser:   cfg.AnsibleUser,
		SSHCommonArgs: cfg.SSHCommonArgs,
	}, resolvers, opts...)

	return printJSON(out, inv.Build(ctx))
}

// runHost prints an empty variable document. Host variables are delivered
// through the _meta key of the full inventory instead.
func runHost(out io.Writer) error {
	if _, err := fmt.Fprintln(out, "{}"); err != nil {
		return fmt.Errorf("writing host variables: %w", err)
	}

	return nil
}

// ------------------------------------------------- Wiring --------------------------------------------------------- //

func buildResolvers(cfg *config.Config) ([]adapter.Resolver, adapter.DomainInfo) {
	resolvers := make([]adapter.Resolver, 0, len(cfg.Sources))

	// Only the virsh backend can report the domain UUID.
	var domainInfo adapter.DomainInfo

	for _, source := range cfg.Sources {
		switch source {
		case config.SourceVirsh:
			virsh := adapter.NewVirshResolver(cfg.Network)
			resolvers = append(resolvers, virsh)

			if domainInfo == nil {
				domainInfo = virsh
			}
		case config.SourceLibvirt:
			resolvers = append(resolvers, adapter.NewLibvirtResolver(cfg.Network, adapter.WithURI(cfg.LibvirtURI)))
		case config.SourceLeaseFile:
			resolvers = append(resolvers, adapter.NewLeaseFileResolver(cfg.Network, adapter.WithLeaseFilePath(cfg.LeaseFile)))
		}
	}

	return resolvers, domainInfo
}

// exportLibvirtURI points virsh and the libvirt client library at the
// configured hypervisor. A value already present in the environment wins.
func exportLibvirtURI(uri string) error {
	if _, ok := os.LookupEnv(libvirtURIEnvKey); ok {
		return nil
	}

	if err := os.Setenv(libvirtURIEnvKey, uri); err != nil {
		return fmt.Errorf("exporting %s: %w", libvirtURIEnvKey, err)
	}

	return nil
}

func printJSON(out io.Writer, doc types.Inventory) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding inventory document: %w", err)
	}

	if _, err := fmt.Fprintln(out, string(b)); err != nil {
		return fmt.Errorf("writing inventory document: %w", err)
	}

	return nil
}
