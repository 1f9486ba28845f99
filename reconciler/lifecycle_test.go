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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/physnetops/switchport-reconciler/controlplane"
)

var _ = Describe("Machine port lifecycle", func() {
	var (
		ctx      context.Context
		store    *fakeStore
		gw       *fakeGateway
		r        *Reconciler
		signaler *fakeSignaler
		network  *controlplane.Network
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newFakeStore()
		gw = newFakeGateway(testSwitch)
		r, signaler = newTestReconciler(store, gw)
		network = testNetwork("net-a", testVLAN)
		store.putNetwork(network)
	})

	It("walks a machine port from enrollment to teardown", func() {
		By("creating the network vlan on the managed switch")
		Expect(r.CreateNetworkPostCommit(ctx, network)).To(Succeed())

		By("binding the machine port")
		unbound := testBaremetalPort("port-1", network.ID)
		unbound.VIFType = controlplane.VIFUnbound
		store.putPort(unbound)
		binder := &fakeBinder{}
		Expect(r.BindPort(ctx, &PortContext{
			Current:        unbound,
			Network:        network,
			SegmentsToBind: network.Segments,
			Binder:         binder,
		})).To(Succeed())
		Expect(signaler.added).To(ConsistOf("port-1"))
		Expect(binder.bindings).To(HaveLen(1))
		Expect(binder.bindings[0].VIFType).To(Equal(controlplane.VIFOther))

		By("completing provisioning once the bound port update lands")
		bound := testBaremetalPort("port-1", network.ID)
		store.putPort(bound)
		Expect(r.UpdatePortPostCommit(ctx, &PortContext{
			Current:  bound,
			Original: unbound,
			Network:  network,
		})).To(Succeed())
		Expect(signaler.completed).To(ConsistOf("port-1"))

		By("turning the port into a trunk parent")
		store.putTrunk(&controlplane.Trunk{ID: "trunk-1", PortID: "port-1", SubPorts: []*controlplane.SubPort{
			{PortID: "sub-1", SegmentationID: 40},
		}})
		Expect(r.EnsureSubports(ctx, "port-1")).To(Succeed())

		By("tearing the port down")
		store.removePort("port-1")
		Expect(r.DeletePortPostCommit(ctx, &PortContext{Current: bound, Network: network})).To(Succeed())

		By("deleting the network vlan")
		store.removeNetwork(network.ID)
		Expect(r.DeleteNetworkPostCommit(ctx, network)).To(Succeed())

		Expect(gw.callsMade()).To(Equal([]gatewayCall{
			{Op: "create_vlan", SwitchName: testSwitch, VlanID: testVLAN},
			{Op: "conf_access_port", SwitchName: testSwitch, SwitchPort: testPort, VlanID: testVLAN},
			{Op: "conf_trunk_port", SwitchName: testSwitch, SwitchPort: testPort, VlanID: testVLAN, Trunked: []int{40}},
			{Op: "delete_port", SwitchName: testSwitch, SwitchPort: testPort},
			{Op: "delete_vlan", SwitchName: testSwitch, VlanID: testVLAN},
		}))
	})
})

var _ = Describe("Host uplink sharing", func() {
	var (
		ctx     context.Context
		store   *fakeStore
		gw      *fakeGateway
		r       *Reconciler
		network *controlplane.Network
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newFakeStore()
		gw = newFakeGateway(testSwitch)
		r, _ = newTestReconciler(store, gw)
		network = testNetwork("net-a", testVLAN)
		store.putNetwork(network)
	})

	It("keeps the uplink vlan until the last instance leaves", func() {
		By("plugging the first instance")
		vm1 := testVMPort("vm-1", network.ID, testHost)
		store.putPort(vm1)
		Expect(r.UpdatePortPostCommit(ctx, &PortContext{Current: vm1, Original: vm1, Network: network})).To(Succeed())

		By("plugging a second instance whose host shares the uplink")
		vm2 := testVMPort("vm-2", network.ID, "compute-02")
		store.putPort(vm2)
		Expect(r.UpdatePortPostCommit(ctx, &PortContext{Current: vm2, Original: vm2, Network: network})).To(Succeed())

		By("removing the first instance, which must not touch the shared vlan")
		store.removePort("vm-1")
		Expect(r.DeletePortPostCommit(ctx, &PortContext{Current: vm1, Network: network})).To(Succeed())

		By("removing the last instance, which frees the vlan")
		store.removePort("vm-2")
		Expect(r.DeletePortPostCommit(ctx, &PortContext{Current: vm2, Network: network})).To(Succeed())

		Expect(gw.callsMade()).To(Equal([]gatewayCall{
			{Op: "add_trunk_vlan", SwitchName: testSwitch, SwitchPort: testPort, VlanID: testVLAN},
			{Op: "add_trunk_vlan", SwitchName: testSwitch, SwitchPort: testPort, VlanID: testVLAN},
			{Op: "delete_trunk_vlan", SwitchName: testSwitch, SwitchPort: testPort, VlanID: testVLAN},
		}))
	})
})
