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
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/physnetops/switchport-reconciler/controlplane"
	"github.com/physnetops/switchport-reconciler/inventory"
)

// switchMeta resolves where a port lands physically: its switch port
// mappings plus the event network's segmentation id. Ports the driver
// does not handle resolve to nothing.
func (r *Reconciler) switchMeta(port *controlplane.Port, network *controlplane.Network) ([]inventory.PortMapping, int, error) {
	if port.IsBaremetal() {
		return r.switchMetaFromLinkInfo(port, network)
	}
	if port.IsComputeOwned() {
		return r.switchMetaFromHostID(port, network)
	}
	return nil, 0, nil
}

// switchMetaFromLinkInfo reads the physical location straight from the
// baremetal port's binding profile. Introspected profiles may carry
// only the switch MAC; the inventory MAC table fills in the name.
func (r *Reconciler) switchMetaFromLinkInfo(port *controlplane.Port, network *controlplane.Network) ([]inventory.PortMapping, int, error) {
	debugLogger := r.Log.V(int(zapcore.WarnLevel))

	lli := port.LinkInfo()
	if lli == nil {
		debugLogger.Info("local link information missing in binding profile", "port", port.ID)
		return nil, 0, fmt.Errorf("port %s: %w", port.ID, ErrLinkInfoMissing)
	}

	switchMAC := strings.ToUpper(lli[0].SwitchID)
	switchName := lli[0].SwitchInfo
	switchPort := lli[0].PortID
	if switchName == "" {
		if name, ok := r.Inventory.FindByMAC(switchMAC); ok {
			switchName = name
		}
	}
	debugLogger.Info("resolved link info", "switch", switchName, "mac", switchMAC, "switchPort", switchPort)

	return []inventory.PortMapping{{SwitchName: switchName, SwitchPort: switchPort}}, network.SegmentationID(), nil
}

// switchMetaFromHostID resolves a host-attached port through the
// mapping table. Hosts with no entry resolve to nothing and the event
// is none of our business.
func (r *Reconciler) switchMetaFromHostID(port *controlplane.Port, network *controlplane.Network) ([]inventory.PortMapping, int, error) {
	hostID := port.BindingHost
	if port.IsDirect() {
		hostID = sriovHostID(hostID, port.PCISlot())
	}
	r.Log.V(int(zapcore.WarnLevel)).Info("host id lookup", "hostID", hostID)
	return r.Inventory.Mappings(hostID), network.SegmentationID(), nil
}

// sriovHostID builds the mapping key of a passthrough port: the host
// id suffixed with the device address minus its function, domain and
// separators, so "0000:03:00.1" on compute-01 keys as "compute-01-0300".
func sriovHostID(hostID, pciSlot string) string {
	slot := strings.SplitN(pciSlot, ".", 2)[0]
	slot = strings.TrimPrefix(slot, "0000:")
	slot = strings.ReplaceAll(slot, ":", "")
	return hostID + "-" + slot
}
