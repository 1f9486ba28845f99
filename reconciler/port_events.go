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
	"strings"

	"github.com/go-logr/logr"
	"github.com/r3labs/diff/v2"
	"go.uber.org/zap/zapcore"

	"github.com/physnetops/switchport-reconciler/controlplane"
	"github.com/physnetops/switchport-reconciler/gateway"
	"github.com/physnetops/switchport-reconciler/metrics"
)

// UpdatePortPostCommit reconciles a port after any committed change.
// Host-attached compute ports are re-ensured on every change; a
// freshly bound baremetal port only needs its provisioning signal; a
// port whose previous snapshot was bound is reconciled from that
// snapshot so unbinding cleans the device up.
func (r *Reconciler) UpdatePortPostCommit(ctx context.Context, pc *PortContext) error {
	r.logPortDrift(pc)

	switch {
	case pc.Current.IsComputeOwned():
		return r.ensureMappings(ctx, pc.Current, pc, false)

	case pc.Current.Bound():
		if err := r.Provisioner.MarkProvisioningComplete(ctx, pc.Current.ID); err != nil {
			return fmt.Errorf("{UpdatePortPostCommit} %w", err)
		}
		return nil

	case pc.Original.Bound():
		return r.ensureMappings(ctx, pc.Original, pc, false)
	}
	return nil
}

// DeletePortPostCommit cleans the device up after a bound port is
// removed from the control plane.
func (r *Reconciler) DeletePortPostCommit(ctx context.Context, pc *PortContext) error {
	if !pc.Current.Bound() {
		return nil
	}
	return r.ensureMappings(ctx, pc.Current, pc, true)
}

// BindPort attempts to bind the port. The engine registers itself as a
// provisioning dependency, converges the device, and on success
// commits the first pending segment with the vendor-neutral VIF type.
// Unsupported ports are ignored.
func (r *Reconciler) BindPort(ctx context.Context, pc *PortContext) error {
	port := pc.Current
	if !port.Supported() {
		r.Log.Info("port has an unsupported vnic type, ignoring",
			"port", port.ID, "vnicType", port.VNICType)
		return nil
	}

	mappings, segmentationID, err := r.switchMeta(port, pc.Network)
	if err != nil {
		return err
	}
	debugLogger := r.Log.V(int(zapcore.WarnLevel))
	for _, m := range mappings {
		debugLogger.Info("plugging in port", "switch", m.SwitchName,
			"switchPort", m.SwitchPort, "vlan", segmentationID)

		if err := r.Provisioner.AddProvisioningComponent(ctx, port.ID); err != nil {
			return fmt.Errorf("{BindPort} %w", err)
		}
		if err := r.EnsurePort(ctx, port, m.SwitchName, m.SwitchPort,
			pc.Network.PhysicalNetwork(), pc, segmentationID, false); err != nil {
			return err
		}
	}
	return nil
}

// ensureMappings resolves a port's switch mappings and ensures each.
func (r *Reconciler) ensureMappings(ctx context.Context, port *controlplane.Port, pc *PortContext, delete bool) error {
	mappings, segmentationID, err := r.switchMeta(port, pc.Network)
	if err != nil {
		return err
	}
	debugLogger := r.Log.V(int(zapcore.WarnLevel))
	for _, m := range mappings {
		debugLogger.Info("ensuring port", "port", port.ID, "switch", m.SwitchName,
			"switchPort", m.SwitchPort, "vlan", segmentationID, "delete", delete)

		if err := r.EnsurePort(ctx, port, m.SwitchName, m.SwitchPort,
			pc.Network.PhysicalNetwork(), pc, segmentationID, delete); err != nil {
			return err
		}
	}
	return nil
}

// EnsurePort converges one switch port with the port's state under the
// switch lock. The port argument is the event snapshot; the port is
// re-read once the lock is held and the fresher copy wins whenever it
// still exists. delete carries the intent for host-attached ports,
// whose virtual state never reflects their removal.
func (r *Reconciler) EnsurePort(ctx context.Context, port *controlplane.Port, switchName, switchPort, physnet string, pc *PortContext, segmentationID int, delete bool) error {
	logger := r.Log.WithValues("port", port.ID, "mac", port.MACAddress,
		"switch", switchName, "switchPort", switchPort, "physnet", physnet)
	debugLogger := logger.V(int(zapcore.WarnLevel))
	debugLogger.Info("ensuring port state")

	if !r.Gateway.HasHost(ctx, switchName) {
		return fmt.Errorf("{EnsurePort} switch %q for port %s: %w", switchName, port.ID, ErrUnknownSwitch)
	}

	unlock, err := r.Locker.Lock(ctx, switchName)
	if err != nil {
		return fmt.Errorf("{EnsurePort} lock %s: %w", switchName, err)
	}
	defer unlock()

	updated, err := r.Plane.GetPort(ctx, port.ID)
	if err != nil {
		return fmt.Errorf("{EnsurePort} %w", err)
	}

	switch {
	case port.IsComputeOwned():
		if delete {
			return r.removeHostVLAN(ctx, port, switchName, switchPort, segmentationID, logger)
		}
		current := port
		if updated != nil {
			current = updated
		}
		return r.setPortState(ctx, current, switchName, switchPort)

	case updated.LinkInfo() != nil:
		if err := r.setPortState(ctx, updated, switchName, switchPort); err != nil {
			return err
		}
		if pc != nil && len(pc.SegmentsToBind) > 0 && pc.Binder != nil {
			pc.Binder.SetBinding(pc.SegmentsToBind[0].ID, controlplane.VIFOther, map[string]interface{}{})
		}
		return nil

	default:
		// the virtual port is gone or unusable, but its MAC tells us
		// whether the physical port moved to another virtual port
		inUse, err := r.deletedPortInUse(ctx, physnet, port.MACAddress)
		if err != nil {
			return fmt.Errorf("{EnsurePort} %w", err)
		}
		if inUse {
			debugLogger.Info("switch port is now in use by another port, discarding delete")
			metrics.Discard(metrics.DiscardPortInUse)
			return nil
		}
		return r.deleteSwitchPort(ctx, switchName, switchPort)
	}
}

// removeHostVLAN removes a VLAN from a host uplink trunk unless other
// compute ports on the network still ride that uplink. Callers hold
// the switch lock.
func (r *Reconciler) removeHostVLAN(ctx context.Context, port *controlplane.Port, switchName, switchPort string, segmentationID int, logger logr.Logger) error {
	candidates, err := r.Plane.GetComputePortsByNetwork(ctx, port.NetworkID)
	if err != nil {
		return fmt.Errorf("{removeHostVLAN} %w", err)
	}
	logger.V(int(zapcore.WarnLevel)).Info("active ports on network", "count", len(candidates))

	active := 0
	for _, cand := range candidates {
		if r.sharesSwitchPort(port, cand, switchName, switchPort) {
			active++
		}
	}
	if active > 0 {
		logger.Info("skip removing vlan from host uplink, other active ports use it",
			"vlan", segmentationID, "host", port.BindingHost, "activePorts", active)
		metrics.Discard(metrics.DiscardSharedUplink)
		return nil
	}

	err = r.Gateway.DeleteTrunkVLAN(ctx, switchName, switchPort, segmentationID, r.Inventory.Params(switchName))
	metrics.DeviceOp(gateway.OpDeleteTrunkVLAN, err)
	if err != nil {
		devErr := &DeviceError{Operation: gateway.OpDeleteTrunkVLAN, SwitchName: switchName, SwitchPort: switchPort, Err: err}
		logger.Error(devErr, "failed to remove vlan from host uplink")
		return devErr
	}
	logger.Info("vlan removed from host uplink", "vlan", segmentationID)
	return nil
}

// sharesSwitchPort reports whether another port's effective binding
// location lands on the same switch port as the one being processed.
func (r *Reconciler) sharesSwitchPort(port, cand *controlplane.Port, switchName, switchPort string) bool {
	if cand.ID == port.ID || !cand.HasBinding() {
		return false
	}
	hostID := cand.BindingHost
	if cand.IsDirect() {
		hostID = sriovHostID(hostID, cand.PCISlot())
	}
	for _, m := range r.Inventory.Mappings(hostID) {
		if m.SwitchName == switchName && m.SwitchPort == switchPort {
			return true
		}
	}
	return false
}

// deletedPortInUse reports whether any remaining port carries the
// deleted port's MAC with usable link info on the same physical
// network. A second tenant can set its MAC to a machine port's and
// meddle with the delete, so the check insists on a full match.
func (r *Reconciler) deletedPortInUse(ctx context.Context, physnet, mac string) (bool, error) {
	ports, err := r.Plane.GetPortsByMAC(ctx, mac)
	if err != nil {
		return false, fmt.Errorf("{deletedPortInUse} %w", err)
	}
	if len(ports) > 1 {
		r.Log.Info("multiple ports matching machine port mac", "mac", mac)
	}
	for _, p := range ports {
		if !p.HasBinding() || p.LinkInfo() == nil {
			continue
		}
		network, err := r.Plane.GetNetwork(ctx, p.NetworkID)
		if err != nil {
			return false, fmt.Errorf("{deletedPortInUse} %w", err)
		}
		if network == nil {
			continue
		}
		for _, seg := range network.Segments {
			if seg.PhysicalNetwork == physnet && seg.NetworkType == controlplane.NetworkTypeVLAN {
				return true, nil
			}
		}
	}
	return false, nil
}

// logPortDrift logs which binding fields moved between the two event
// snapshots. Debug-level visibility only; reconciliation never keys
// off the delta.
func (r *Reconciler) logPortDrift(pc *PortContext) {
	debugLogger := r.Log.V(int(zapcore.WarnLevel))
	if !debugLogger.Enabled() || pc.Original == nil || pc.Current == nil {
		return
	}
	changelog, err := diff.Diff(pc.Original, pc.Current)
	if err != nil || len(changelog) == 0 {
		return
	}
	fields := make([]string, 0, len(changelog))
	for _, change := range changelog {
		fields = append(fields, strings.Join(change.Path, "."))
	}
	debugLogger.Info("port drift", "port", pc.Current.ID, "fields", fields)
}
