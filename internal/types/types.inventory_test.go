package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryMarshalJSON(t *testing.T) {
	t.Run("empty inventory", func(t *testing.T) {
		data, err := json.Marshal(EmptyInventory())
		require.NoError(t, err)
		assert.Equal(t, `{"_meta":{"hostvars":{}}}`, string(data))
	})

	t.Run("zero value never serializes hostvars as null", func(t *testing.T) {
		data, err := json.Marshal(Inventory{})
		require.NoError(t, err)
		assert.Equal(t, `{"_meta":{"hostvars":{}}}`, string(data))
	})

	t.Run("single host inventory", func(t *testing.T) {
		inv := NewInventory("test_vm", "test-vm", HostVars{
			AnsibleHost:          "192.168.122.50",
			AnsibleUser:          "ubuntu",
			AnsibleSSHCommonArgs: "-o StrictHostKeyChecking=no",
		})

		data, err := json.Marshal(inv)
		require.NoError(t, err)

		assert.Equal(t,
			`{"_meta":{"hostvars":{"test-vm":{`+
				`"ansible_host":"192.168.122.50",`+
				`"ansible_user":"ubuntu",`+
				`"ansible_ssh_common_args":"-o StrictHostKeyChecking=no"}}},`+
				`"test_vm":{"hosts":["test-vm"]}}`,
			string(data))
	})

	t.Run("group and hostvars reference the same host", func(t *testing.T) {
		inv := NewInventory("vms", "vm-0", HostVars{AnsibleHost: "10.0.0.8"})

		require.Contains(t, inv.Groups, "vms")
		assert.Equal(t, []string{"vm-0"}, inv.Groups["vms"].Hosts)
		require.Contains(t, inv.Meta.HostVars, "vm-0")
		assert.Equal(t, "10.0.0.8", inv.Meta.HostVars["vm-0"].AnsibleHost)
	})
}
