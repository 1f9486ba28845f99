/*
Copyright 2026. Physnet Ops, Inc.

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

// Package gateway speaks to the device automation service that applies
// switch configuration. The engine only names operations; playbook
// mechanics, retries and device sessions are the automation layer's
// business.
package gateway

import "context"

// Operation names understood by the automation service.
const (
	OpCreateVLAN      = "create_vlan"
	OpDeleteVLAN      = "delete_vlan"
	OpConfAccessPort  = "conf_access_port"
	OpConfTrunkPort   = "conf_trunk_port"
	OpAddTrunkVLAN    = "add_trunk_vlan"
	OpDeleteTrunkVLAN = "delete_trunk_vlan"
	OpDeletePort      = "delete_port"
)

// Gateway is the device operation vocabulary. Mutating calls carry the
// per-switch params from the inventory. Success means the device now
// reflects the requested state; idempotence of conf_access_port and
// conf_trunk_port (full replace) versus the incremental trunk VLAN ops
// is part of the contract.
type Gateway interface {
	// HasHost reports whether the automation service knows the switch.
	HasHost(ctx context.Context, switchName string) bool

	// CreateVLAN ensures the VLAN exists on the switch.
	CreateVLAN(ctx context.Context, switchName string, vlanID int, params map[string]interface{}) error

	// DeleteVLAN removes the VLAN from the switch.
	DeleteVLAN(ctx context.Context, switchName string, vlanID int, params map[string]interface{}) error

	// ConfAccessPort makes the port an access port on the VLAN,
	// replacing whatever was configured before.
	ConfAccessPort(ctx context.Context, switchName, switchPort string, vlanID int, params map[string]interface{}) error

	// ConfTrunkPort makes the port a trunk with the given native VLAN
	// and exactly the given tagged members, replacing prior state.
	ConfTrunkPort(ctx context.Context, switchName, switchPort string, nativeVLAN int, trunkedVLANs []int, params map[string]interface{}) error

	// AddTrunkVLAN adds one tagged VLAN to the port's trunk, leaving
	// other members alone.
	AddTrunkVLAN(ctx context.Context, switchName, switchPort string, vlanID int, params map[string]interface{}) error

	// DeleteTrunkVLAN removes one tagged VLAN from the port's trunk,
	// leaving other members alone.
	DeleteTrunkVLAN(ctx context.Context, switchName, switchPort string, vlanID int, params map[string]interface{}) error

	// DeletePort resets the port to an unconfigured state.
	DeletePort(ctx context.Context, switchName, switchPort string, params map[string]interface{}) error
}
