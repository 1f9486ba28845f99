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

package reconciler

import (
	"context"
	"fmt"

	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/physnetops/switchport-reconciler/controlplane"
	"github.com/physnetops/switchport-reconciler/gateway"
	"github.com/physnetops/switchport-reconciler/metrics"
)

// setPortState converges one switch port onto the port's current
// virtual state. Trunk parents get a full trunk replace, host uplinks
// get their VLAN added incrementally, everything else becomes an
// access port. Callers hold the switch lock.
func (r *Reconciler) setPortState(ctx context.Context, port *controlplane.Port, switchName, switchPort string) error {
	if port == nil {
		return fmt.Errorf("{setPortState} nil port: %w", ErrInvalidArgument)
	}
	if switchName == "" || switchPort == "" {
		return fmt.Errorf("{setPortState} port %s has no switch location: %w", port.ID, ErrInvalidArgument)
	}
	if !r.Inventory.HasSwitch(switchName) || !r.Gateway.HasHost(ctx, switchName) {
		return fmt.Errorf("{setPortState} %s: %w", switchName, ErrUnknownSwitch)
	}

	logger := r.Log.WithValues("port", port.ID, "switch", switchName, "switchPort", switchPort)

	network, err := r.Plane.GetNetwork(ctx, port.NetworkID)
	if err != nil {
		return fmt.Errorf("{setPortState} %w", err)
	}
	if network == nil {
		return fmt.Errorf("{setPortState} port %s network %s: %w", port.ID, port.NetworkID, ErrNetworkNotFound)
	}
	trunk, err := r.Plane.GetTrunkByPort(ctx, port.ID)
	if err != nil {
		return fmt.Errorf("{setPortState} %w", err)
	}

	segmentationID := network.SegmentationID()
	params := r.Inventory.Params(switchName)

	var op string
	switch {
	case trunk != nil:
		// full replace: recompute the member set from scratch so a
		// stale membership event cannot leave a partial trunk
		members := sets.New[int]()
		for _, sp := range trunk.SubPorts {
			members.Insert(sp.SegmentationID)
		}
		op = gateway.OpConfTrunkPort
		err = r.Gateway.ConfTrunkPort(ctx, switchName, switchPort, segmentationID, sets.List(members), params)
	case port.IsComputeOwned():
		// the uplink trunk is shared with other instances on the host,
		// only this VLAN may be touched
		op = gateway.OpAddTrunkVLAN
		err = r.Gateway.AddTrunkVLAN(ctx, switchName, switchPort, segmentationID, params)
	default:
		op = gateway.OpConfAccessPort
		err = r.Gateway.ConfAccessPort(ctx, switchName, switchPort, segmentationID, params)
	}
	metrics.DeviceOp(op, err)
	if err != nil {
		devErr := &DeviceError{Operation: op, SwitchName: switchName, SwitchPort: switchPort, Err: err}
		logger.Error(devErr, "failed to plug port into switch port")
		return devErr
	}
	logger.Info("port has been plugged into switch port", "vlan", segmentationID)
	return nil
}

// deleteSwitchPort resets a physical port that no longer backs any
// virtual port. Callers hold the switch lock.
func (r *Reconciler) deleteSwitchPort(ctx context.Context, switchName, switchPort string) error {
	logger := r.Log.WithValues("switch", switchName, "switchPort", switchPort)
	logger.V(int(zapcore.WarnLevel)).Info("unplugging switch port")

	err := r.Gateway.DeletePort(ctx, switchName, switchPort, r.Inventory.Params(switchName))
	metrics.DeviceOp(gateway.OpDeletePort, err)
	if err != nil {
		devErr := &DeviceError{Operation: gateway.OpDeletePort, SwitchName: switchName, SwitchPort: switchPort, Err: err}
		logger.Error(devErr, "failed to unplug switch port")
		return devErr
	}
	logger.Info("unplugged switch port")
	return nil
}
