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
	"strings"
	"sync"

	"github.com/physnetops/switchport-reconciler/controlplane"
	"github.com/physnetops/switchport-reconciler/coordination"
	"github.com/physnetops/switchport-reconciler/inventory"
	"github.com/physnetops/switchport-reconciler/logutil"
)

const (
	testSwitch  = "leaf101"
	testSwitch2 = "leaf102"
	testPort    = "Ethernet1/10"
	testMAC     = "01:23:45:67:89:AB"
	testPhysnet = "physnet1"
	testHost    = "compute-01"
	testVLAN    = 37
	testVLAN2   = 73
	testPCISlot = "0000:03:00.1"
)

const testInventoryYAML = `
all:
  hosts:
    leaf101:
      mac: "aa:bb:cc:dd:ee:ff"
      stp_edge: true
    leaf102:
      manage_vlans: false
port_mappings:
  compute-01:
    - leaf101::Ethernet1/10
  compute-01-0300:
    - leaf101::Ethernet1/20
  compute-02:
    - leaf101::Ethernet1/10
  compute-03:
    - leaf101::Ethernet1/30
    - leaf102::Ethernet1/30
`

/**** Store ****/

type fakeStore struct {
	sync.Mutex
	ports    map[string]*controlplane.Port
	networks map[string]*controlplane.Network
	trunks   map[string]*controlplane.Trunk
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ports:    map[string]*controlplane.Port{},
		networks: map[string]*controlplane.Network{},
		trunks:   map[string]*controlplane.Trunk{},
	}
}

func (s *fakeStore) putPort(p *controlplane.Port) {
	s.Lock()
	defer s.Unlock()
	s.ports[p.ID] = p
}

func (s *fakeStore) removePort(id string) {
	s.Lock()
	defer s.Unlock()
	delete(s.ports, id)
}

func (s *fakeStore) putNetwork(n *controlplane.Network) {
	s.Lock()
	defer s.Unlock()
	s.networks[n.ID] = n
}

func (s *fakeStore) removeNetwork(id string) {
	s.Lock()
	defer s.Unlock()
	delete(s.networks, id)
}

func (s *fakeStore) putTrunk(t *controlplane.Trunk) {
	s.Lock()
	defer s.Unlock()
	s.trunks[t.PortID] = t
}

func (s *fakeStore) GetPort(_ context.Context, id string) (*controlplane.Port, error) {
	s.Lock()
	defer s.Unlock()
	return s.ports[id], nil
}

func (s *fakeStore) GetPortsByMAC(_ context.Context, mac string) ([]*controlplane.Port, error) {
	s.Lock()
	defer s.Unlock()
	var out []*controlplane.Port
	for _, p := range s.ports {
		if strings.EqualFold(p.MACAddress, mac) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) GetComputePortsByNetwork(_ context.Context, networkID string) ([]*controlplane.Port, error) {
	s.Lock()
	defer s.Unlock()
	var out []*controlplane.Port
	for _, p := range s.ports {
		if p.NetworkID == networkID && p.IsComputeOwned() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) GetNetwork(_ context.Context, id string) (*controlplane.Network, error) {
	s.Lock()
	defer s.Unlock()
	return s.networks[id], nil
}

func (s *fakeStore) GetSegmentsByVLAN(_ context.Context, vlanID int) ([]*controlplane.Segment, error) {
	s.Lock()
	defer s.Unlock()
	var out []*controlplane.Segment
	for _, n := range s.networks {
		for _, seg := range n.Segments {
			if seg.SegmentationID == vlanID {
				out = append(out, seg)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) GetTrunkByPort(_ context.Context, portID string) (*controlplane.Trunk, error) {
	s.Lock()
	defer s.Unlock()
	return s.trunks[portID], nil
}

/**** Gateway ****/

type gatewayCall struct {
	Op         string
	SwitchName string
	SwitchPort string
	VlanID     int
	Trunked    []int
}

type fakeGateway struct {
	sync.Mutex
	hosts map[string]bool
	calls []gatewayCall
	fail  map[string]error
}

func newFakeGateway(hosts ...string) *fakeGateway {
	g := &fakeGateway{hosts: map[string]bool{}, fail: map[string]error{}}
	for _, h := range hosts {
		g.hosts[h] = true
	}
	return g
}

func (g *fakeGateway) record(call gatewayCall) error {
	g.Lock()
	defer g.Unlock()
	g.calls = append(g.calls, call)
	return g.fail[call.Op]
}

func (g *fakeGateway) HasHost(_ context.Context, switchName string) bool {
	g.Lock()
	defer g.Unlock()
	return g.hosts[switchName]
}

func (g *fakeGateway) CreateVLAN(_ context.Context, switchName string, vlanID int, _ map[string]interface{}) error {
	return g.record(gatewayCall{Op: "create_vlan", SwitchName: switchName, VlanID: vlanID})
}

func (g *fakeGateway) DeleteVLAN(_ context.Context, switchName string, vlanID int, _ map[string]interface{}) error {
	return g.record(gatewayCall{Op: "delete_vlan", SwitchName: switchName, VlanID: vlanID})
}

func (g *fakeGateway) ConfAccessPort(_ context.Context, switchName, switchPort string, vlanID int, _ map[string]interface{}) error {
	return g.record(gatewayCall{Op: "conf_access_port", SwitchName: switchName, SwitchPort: switchPort, VlanID: vlanID})
}

func (g *fakeGateway) ConfTrunkPort(_ context.Context, switchName, switchPort string, nativeVLAN int, trunkedVLANs []int, _ map[string]interface{}) error {
	return g.record(gatewayCall{Op: "conf_trunk_port", SwitchName: switchName, SwitchPort: switchPort, VlanID: nativeVLAN, Trunked: trunkedVLANs})
}

func (g *fakeGateway) AddTrunkVLAN(_ context.Context, switchName, switchPort string, vlanID int, _ map[string]interface{}) error {
	return g.record(gatewayCall{Op: "add_trunk_vlan", SwitchName: switchName, SwitchPort: switchPort, VlanID: vlanID})
}

func (g *fakeGateway) DeleteTrunkVLAN(_ context.Context, switchName, switchPort string, vlanID int, _ map[string]interface{}) error {
	return g.record(gatewayCall{Op: "delete_trunk_vlan", SwitchName: switchName, SwitchPort: switchPort, VlanID: vlanID})
}

func (g *fakeGateway) DeletePort(_ context.Context, switchName, switchPort string, _ map[string]interface{}) error {
	return g.record(gatewayCall{Op: "delete_port", SwitchName: switchName, SwitchPort: switchPort})
}

func (g *fakeGateway) callsMade() []gatewayCall {
	g.Lock()
	defer g.Unlock()
	out := make([]gatewayCall, len(g.calls))
	copy(out, g.calls)
	return out
}

/**** Binding and provisioning ****/

type bindingRecord struct {
	SegmentID  string
	VIFType    string
	VIFDetails map[string]interface{}
}

type fakeBinder struct {
	sync.Mutex
	bindings []bindingRecord
}

func (b *fakeBinder) SetBinding(segmentID, vifType string, vifDetails map[string]interface{}) {
	b.Lock()
	defer b.Unlock()
	b.bindings = append(b.bindings, bindingRecord{SegmentID: segmentID, VIFType: vifType, VIFDetails: vifDetails})
}

type fakeSignaler struct {
	sync.Mutex
	added     []string
	completed []string
}

func (s *fakeSignaler) AddProvisioningComponent(_ context.Context, portID string) error {
	s.Lock()
	defer s.Unlock()
	s.added = append(s.added, portID)
	return nil
}

func (s *fakeSignaler) MarkProvisioningComplete(_ context.Context, portID string) error {
	s.Lock()
	defer s.Unlock()
	s.completed = append(s.completed, portID)
	return nil
}

/**** Fixtures ****/

func testNetwork(id string, vlanID int) *controlplane.Network {
	return &controlplane.Network{
		ID: id,
		Segments: []*controlplane.Segment{{
			ID:              "seg-" + id,
			NetworkType:     controlplane.NetworkTypeVLAN,
			SegmentationID:  vlanID,
			PhysicalNetwork: testPhysnet,
		}},
	}
}

func testBaremetalPort(id, networkID string) *controlplane.Port {
	return &controlplane.Port{
		ID:          id,
		MACAddress:  testMAC,
		NetworkID:   networkID,
		DeviceOwner: "baremetal:none",
		BindingHost: "ironic-node-1",
		VNICType:    controlplane.VNICBaremetal,
		VIFType:     controlplane.VIFOther,
		Profile: map[string]interface{}{
			controlplane.ProfileLinkInfoKey: []interface{}{
				map[string]interface{}{
					"switch_info": testSwitch,
					"switch_id":   "aa:bb:cc:dd:ee:ff",
					"port_id":     testPort,
				},
			},
		},
	}
}

func testVMPort(id, networkID, host string) *controlplane.Port {
	return &controlplane.Port{
		ID:          id,
		MACAddress:  "02:00:00:00:00:01",
		NetworkID:   networkID,
		DeviceOwner: "compute:az1",
		BindingHost: host,
		VNICType:    controlplane.VNICNormal,
		VIFType:     controlplane.VIFOVS,
	}
}

func testDirectPort(id, networkID, host, pciSlot string) *controlplane.Port {
	p := testVMPort(id, networkID, host)
	p.VNICType = controlplane.VNICDirect
	p.Profile = map[string]interface{}{controlplane.ProfilePCISlotKey: pciSlot}
	return p
}

func newTestReconciler(store *fakeStore, gw *fakeGateway) (*Reconciler, *fakeSignaler) {
	return newTestReconcilerWithInventory(store, gw, testInventoryYAML)
}

func newTestReconcilerWithInventory(store *fakeStore, gw *fakeGateway, inventoryYAML string) (*Reconciler, *fakeSignaler) {
	inv, err := inventory.Parse([]byte(inventoryYAML))
	if err != nil {
		panic(err)
	}
	signaler := &fakeSignaler{}
	r, err := New(Reconciler{
		Log:         logutil.NewNop(),
		Plane:       store,
		Inventory:   inv,
		Gateway:     gw,
		Locker:      coordination.NewLocalLocker(),
		Provisioner: signaler,
	})
	if err != nil {
		panic(err)
	}
	return r, signaler
}
