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

// Package reconciler keeps physical switch ports lined up with the
// virtual networking state. The plugin framework invokes the exported
// hooks after its own transactions commit; every hook re-reads the
// control plane under a per-switch lock before touching a device, so a
// stale event can only ever produce a no-op.
package reconciler

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/physnetops/switchport-reconciler/controlplane"
	"github.com/physnetops/switchport-reconciler/coordination"
	"github.com/physnetops/switchport-reconciler/gateway"
	"github.com/physnetops/switchport-reconciler/inventory"
	"github.com/physnetops/switchport-reconciler/logutil"
)

// BindingSink receives the engine's binding decision during a bind
// attempt. The framework may commit or discard it; the engine never
// finds out and must not care.
type BindingSink interface {
	SetBinding(segmentID, vifType string, vifDetails map[string]interface{})
}

// PortContext is the payload of a port-level hook: the current and
// prior port snapshots plus the network they sit on. SegmentsToBind
// and Binder are populated by the framework only for bind attempts.
type PortContext struct {
	Current        *controlplane.Port
	Original       *controlplane.Port
	Network        *controlplane.Network
	SegmentsToBind []*controlplane.Segment
	Binder         BindingSink
}

// Reconciler is the switch-port reconciliation engine.
type Reconciler struct {
	Log       logr.Logger
	Plane     controlplane.Store
	Inventory *inventory.Inventory
	Gateway   gateway.Gateway
	Locker    coordination.Locker
	// Provisioner relays provisioning signals to the framework. Left
	// nil, signals are dropped.
	Provisioner controlplane.ProvisioningSignaler
}

// New checks the wiring and returns the engine ready for hook calls.
func New(r Reconciler) (*Reconciler, error) {
	if r.Plane == nil {
		return nil, fmt.Errorf("{New} control plane store is required")
	}
	if r.Inventory == nil {
		return nil, fmt.Errorf("{New} inventory is required")
	}
	if r.Gateway == nil {
		return nil, fmt.Errorf("{New} device gateway is required")
	}
	if r.Locker == nil {
		return nil, fmt.Errorf("{New} locker is required")
	}
	if r.Log.GetSink() == nil {
		r.Log = logutil.NewNop()
	}
	if r.Provisioner == nil {
		r.Provisioner = nopSignaler{}
	}
	return &r, nil
}

type nopSignaler struct{}

func (nopSignaler) AddProvisioningComponent(context.Context, string) error { return nil }
func (nopSignaler) MarkProvisioningComplete(context.Context, string) error { return nil }
