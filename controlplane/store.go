/*
Copyright 2025. Physnet Ops, Inc.

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

package controlplane

import "context"

// Store reads current objects from the virtual control plane. Every
// lookup hits the authoritative plane; results are never cached by the
// driver. A lookup that finds nothing returns (nil, nil).
type Store interface {
	// GetPort returns the port with the given id.
	GetPort(ctx context.Context, id string) (*Port, error)

	// GetPortsByMAC returns every port carrying the given MAC address.
	GetPortsByMAC(ctx context.Context, mac string) ([]*Port, error)

	// GetComputePortsByNetwork returns the ports on a network that are
	// owned by compute instances.
	GetComputePortsByNetwork(ctx context.Context, networkID string) ([]*Port, error)

	// GetNetwork returns the network with the given id.
	GetNetwork(ctx context.Context, id string) (*Network, error)

	// GetSegmentsByVLAN returns every segment in the plane using the
	// given segmentation id, regardless of network.
	GetSegmentsByVLAN(ctx context.Context, vlanID int) ([]*Segment, error)

	// GetTrunkByPort returns the trunk whose parent is the given port.
	GetTrunkByPort(ctx context.Context, portID string) (*Trunk, error)
}

// ProvisioningSignaler forwards provisioning lifecycle signals to the
// plugin framework. The driver only relays; it never tracks
// provisioning state itself.
type ProvisioningSignaler interface {
	// AddProvisioningComponent registers this driver as a provisioning
	// dependency of the port.
	AddProvisioningComponent(ctx context.Context, portID string) error

	// MarkProvisioningComplete reports the driver's provisioning step
	// on the port as done.
	MarkProvisioningComplete(ctx context.Context, portID string) error
}
