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

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// VNIC types carried in a port's binding.
const (
	VNICNormal    = "normal"
	VNICBaremetal = "baremetal"
	VNICDirect    = "direct"
)

// VIF types recorded on a bound port. Baremetal ports bound by this
// driver carry VIFOther; host-attached ports are bound by the virtual
// switch and carry VIFOVS.
const (
	VIFOther   = "other"
	VIFOVS     = "ovs"
	VIFUnbound = "unbound"
)

// DeviceOwnerComputePrefix marks ports that belong to a compute instance.
const DeviceOwnerComputePrefix = "compute:"

// NetworkTypeVLAN is the only provider network type the driver acts on.
const NetworkTypeVLAN = "vlan"

// Binding profile keys set by the machine-provisioning service.
const (
	ProfileLinkInfoKey = "local_link_information"
	ProfilePCISlotKey  = "pci_slot"
)

// Port is a virtual port snapshot. Binding fields are flattened onto the
// port the way hook payloads deliver them.
type Port struct {
	ID          string                 `json:"id"`
	MACAddress  string                 `json:"mac_address"`
	NetworkID   string                 `json:"network_id"`
	DeviceOwner string                 `json:"device_owner"`
	BindingHost string                 `json:"binding_host_id"`
	VNICType    string                 `json:"binding_vnic_type"`
	VIFType     string                 `json:"binding_vif_type"`
	Profile     map[string]interface{} `json:"binding_profile,omitempty"`
}

// LinkInfo describes one physical link of a baremetal port, taken from
// the binding profile.
type LinkInfo struct {
	SwitchInfo string `json:"switch_info" mapstructure:"switch_info"`
	SwitchID   string `json:"switch_id"   mapstructure:"switch_id"`
	PortID     string `json:"port_id"     mapstructure:"port_id"`
}

// Network .
type Network struct {
	ID       string     `json:"id"`
	Segments []*Segment `json:"segments"`
}

// Segment .
type Segment struct {
	ID              string `json:"id"`
	NetworkType     string `json:"network_type"`
	SegmentationID  int    `json:"segmentation_id"`
	PhysicalNetwork string `json:"physical_network"`
}

// Trunk holds the sub-ports trunked below a parent port.
type Trunk struct {
	ID       string     `json:"id"`
	PortID   string     `json:"port_id"`
	SubPorts []*SubPort `json:"sub_ports"`
}

// SubPort .
type SubPort struct {
	PortID         string `json:"port_id"`
	SegmentationID int    `json:"segmentation_id"`
}

// PrimarySegment returns the network's first segment, nil when the
// network carries none.
func (n *Network) PrimarySegment() *Segment {
	if n == nil || len(n.Segments) == 0 {
		return nil
	}
	return n.Segments[0]
}

// SegmentationID returns the primary segment's VLAN id, 0 when absent.
func (n *Network) SegmentationID() int {
	if s := n.PrimarySegment(); s != nil {
		return s.SegmentationID
	}
	return 0
}

// PhysicalNetwork returns the primary segment's physical network name.
func (n *Network) PhysicalNetwork() string {
	if s := n.PrimarySegment(); s != nil {
		return s.PhysicalNetwork
	}
	return ""
}

// Supported reports whether the port's VNIC type is one this driver
// handles.
func (p *Port) Supported() bool {
	if p == nil {
		return false
	}
	switch p.VNICType {
	case VNICNormal, VNICBaremetal, VNICDirect:
		return true
	}
	return false
}

// IsBaremetal .
func (p *Port) IsBaremetal() bool {
	return p != nil && p.VNICType == VNICBaremetal
}

// IsDirect reports whether the port is a passthrough device port.
func (p *Port) IsDirect() bool {
	return p != nil && p.VNICType == VNICDirect
}

// IsComputeOwned reports whether the port belongs to a compute instance
// attached through the host's virtual switch.
func (p *Port) IsComputeOwned() bool {
	return p != nil && strings.HasPrefix(p.DeviceOwner, DeviceOwnerComputePrefix)
}

// Bound reports whether the port is bound by this driver. Baremetal
// ports bound here carry the vendor-neutral VIF type; compute-owned
// ports are bound by the virtual switch.
func (p *Port) Bound() bool {
	if !p.Supported() {
		return false
	}
	if p.IsBaremetal() {
		return p.VIFType == VIFOther
	}
	if p.IsComputeOwned() {
		return p.VIFType == VIFOVS
	}
	return false
}

// HasBinding reports whether the port carries any binding record.
func (p *Port) HasBinding() bool {
	return p != nil && p.BindingHost != ""
}

// LinkInfo decodes the physical link descriptors from the binding
// profile. Returns nil for unsupported ports and whenever the profile
// carries no usable link information.
func (p *Port) LinkInfo() []LinkInfo {
	if p == nil || !p.Supported() || p.Profile == nil {
		return nil
	}
	raw, ok := p.Profile[ProfileLinkInfoKey]
	if !ok {
		return nil
	}
	var lli []LinkInfo
	if err := mapstructure.Decode(raw, &lli); err != nil {
		return nil
	}
	if len(lli) == 0 {
		return nil
	}
	return lli
}

// PCISlot returns the passthrough device address from the binding
// profile, empty when absent.
func (p *Port) PCISlot() string {
	if p == nil || p.Profile == nil {
		return ""
	}
	s, _ := p.Profile[ProfilePCISlotKey].(string)
	return s
}
