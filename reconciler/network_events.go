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
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/physnetops/switchport-reconciler/controlplane"
	"github.com/physnetops/switchport-reconciler/gateway"
	"github.com/physnetops/switchport-reconciler/inventory"
	"github.com/physnetops/switchport-reconciler/metrics"
)

// errStaleEvent aborts a network fan-out once any switch observes that
// the event no longer matches the control plane. It never escapes the
// hooks; staleness is a silent no-op.
var errStaleEvent = errors.New("stale network event")

// CreateNetworkPostCommit creates the network's VLAN on every switch
// the driver manages VLANs for. Each switch is handled in parallel
// under its own lock; the VLAN assignment is re-checked under the lock
// before anything touches a device.
func (r *Reconciler) CreateNetworkPostCommit(ctx context.Context, network *controlplane.Network) error {
	segment := network.PrimarySegment()
	if segment == nil || segment.NetworkType != controlplane.NetworkTypeVLAN || segment.SegmentationID == 0 {
		return nil
	}

	logger := r.Log.WithValues("network", network.ID, "vlan", segment.SegmentationID)
	debugLogger := logger.V(int(zapcore.WarnLevel))

	g, gctx := errgroup.WithContext(ctx)
	for _, sw := range r.managedSwitches() {
		sw := sw
		g.Go(func() error {
			unlock, err := r.Locker.Lock(gctx, sw.Name)
			if err != nil {
				return fmt.Errorf("{CreateNetworkPostCommit} lock %s: %w", sw.Name, err)
			}
			defer unlock()

			// the network may be stale by the time the lock is ours
			net, err := r.Plane.GetNetwork(gctx, network.ID)
			if err != nil {
				return fmt.Errorf("{CreateNetworkPostCommit} %w", err)
			}
			if net == nil {
				debugLogger.Info("network deleted while waiting for lock, discarding create")
				metrics.Discard(metrics.DiscardNetworkGone)
				return errStaleEvent
			}
			if !hasSegmentationID(net, segment.SegmentationID) {
				debugLogger.Info("vlan no longer assigned to network, discarding create")
				metrics.Discard(metrics.DiscardVLANReassigned)
				return errStaleEvent
			}

			err = r.Gateway.CreateVLAN(gctx, sw.Name, segment.SegmentationID, sw.Params)
			metrics.DeviceOp(gateway.OpCreateVLAN, err)
			if err != nil {
				devErr := &DeviceError{Operation: gateway.OpCreateVLAN, SwitchName: sw.Name, Err: err}
				logger.Error(devErr, "failed to create vlan")
				return devErr
			}
			logger.Info("vlan has been added", "switch", sw.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errStaleEvent) {
		return err
	}
	return nil
}

// DeleteNetworkPostCommit removes the network's VLAN from every
// managed switch. VLAN ids are recycled, so each switch re-checks
// under its lock that no segment anywhere still uses the id on this
// physical network before deleting.
func (r *Reconciler) DeleteNetworkPostCommit(ctx context.Context, network *controlplane.Network) error {
	segment := network.PrimarySegment()
	if segment == nil || segment.NetworkType != controlplane.NetworkTypeVLAN || segment.SegmentationID == 0 {
		return nil
	}

	logger := r.Log.WithValues("network", network.ID, "vlan", segment.SegmentationID)
	debugLogger := logger.V(int(zapcore.WarnLevel))

	g, gctx := errgroup.WithContext(ctx)
	for _, sw := range r.managedSwitches() {
		sw := sw
		g.Go(func() error {
			unlock, err := r.Locker.Lock(gctx, sw.Name)
			if err != nil {
				return fmt.Errorf("{DeleteNetworkPostCommit} lock %s: %w", sw.Name, err)
			}
			defer unlock()

			segments, err := r.Plane.GetSegmentsByVLAN(gctx, segment.SegmentationID)
			if err != nil {
				return fmt.Errorf("{DeleteNetworkPostCommit} %w", err)
			}
			for _, seg := range segments {
				if seg.SegmentationID == segment.SegmentationID &&
					seg.PhysicalNetwork == segment.PhysicalNetwork &&
					seg.NetworkType == controlplane.NetworkTypeVLAN {
					debugLogger.Info("vlan was recreated on this physical network, discarding delete")
					metrics.Discard(metrics.DiscardVLANStillUsed)
					return errStaleEvent
				}
			}

			err = r.Gateway.DeleteVLAN(gctx, sw.Name, segment.SegmentationID, sw.Params)
			metrics.DeviceOp(gateway.OpDeleteVLAN, err)
			if err != nil {
				devErr := &DeviceError{Operation: gateway.OpDeleteVLAN, SwitchName: sw.Name, Err: err}
				logger.Error(devErr, "failed to delete vlan")
				return devErr
			}
			logger.Info("vlan has been deleted", "switch", sw.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errStaleEvent) {
		return err
	}
	return nil
}

// managedSwitches snapshots the switches whose VLANs the driver owns.
func (r *Reconciler) managedSwitches() []*inventory.Switch {
	var switches []*inventory.Switch
	for _, name := range r.Inventory.SwitchNames() {
		if sw, ok := r.Inventory.Get(name); ok && sw.ManageVLANs {
			switches = append(switches, sw)
		}
	}
	return switches
}

func hasSegmentationID(network *controlplane.Network, vlanID int) bool {
	for _, s := range network.Segments {
		if s.SegmentationID == vlanID {
			return true
		}
	}
	return false
}
