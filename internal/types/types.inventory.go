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

import "encoding/json"

// MetaKey is the reserved top-level key carrying per-host variables.
const MetaKey = "_meta"

// HostVars are the Ansible connection variables advertised for a host.
type HostVars struct {
	// AnsibleHost is the address Ansible connects to.
	AnsibleHost string `json:"ansible_host"`
	// AnsibleUser is the login user.
	AnsibleUser string `json:"ansible_user"`
	// AnsibleSSHCommonArgs are extra arguments passed to every ssh invocation.
	AnsibleSSHCommonArgs string `json:"ansible_ssh_common_args"`
}

// Group is a named set of hosts.
type Group struct {
	Hosts []string `json:"hosts"`
}

// Meta carries the per-host variables, so Ansible never has to call back
// with --host for each discovered host.
type Meta struct {
	HostVars map[string]HostVars `json:"hostvars"`
}

// Inventory is an Ansible dynamic inventory document. Groups serialize as
// top-level keys next to the reserved "_meta" key.
type Inventory struct {
	Groups map[string]Group
	Meta   Meta
}

// NewInventory returns an inventory advertising a single host in a single
// group. The group membership and the hostvars entry always reference the
// same host name.
func NewInventory(group, host string, vars HostVars) Inventory {
	return Inventory{
		Groups: map[string]Group{group: {Hosts: []string{host}}},
		Meta:   Meta{HostVars: map[string]HostVars{host: vars}},
	}
}

// EmptyInventory returns the inventory advertising no hosts. It serializes
// to {"_meta": {"hostvars": {}}}.
func EmptyInventory() Inventory {
	return Inventory{Meta: Meta{HostVars: map[string]HostVars{}}}
}

// MarshalJSON flattens the groups next to the "_meta" key.
func (inv Inventory) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(inv.Groups)+1)

	for name, group := range inv.Groups {
		doc[name] = group
	}

	// hostvars is part of the protocol: an empty object, never null.
	meta := inv.Meta
	if meta.HostVars == nil {
		meta.HostVars = map[string]HostVars{}
	}

	doc[MetaKey] = meta

	return json.Marshal(doc) //nolint:wrapcheck
}
