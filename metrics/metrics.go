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

// Package metrics exposes the driver's prometheus collectors on the
// default registry. The hosting process decides whether and where to
// serve them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Device operation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Discard reasons. Discards are reconcile requests that resolved to a
// deliberate no-op, not failures.
const (
	DiscardNetworkGone    = "network_gone"
	DiscardVLANReassigned = "vlan_reassigned"
	DiscardVLANStillUsed  = "vlan_still_used"
	DiscardSharedUplink   = "shared_uplink"
	DiscardPortInUse      = "switch_port_in_use"
	DiscardPortGone       = "port_gone"
)

var (
	deviceOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchport",
		Subsystem: "gateway",
		Name:      "device_operations_total",
		Help:      "Device operations issued through the gateway, by operation and result.",
	}, []string{"operation", "result"})

	discards = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchport",
		Subsystem: "reconciler",
		Name:      "discards_total",
		Help:      "Reconcile requests discarded as deliberate no-ops, by reason.",
	}, []string{"reason"})
)

// DeviceOp records one issued device operation.
func DeviceOp(operation string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	deviceOps.WithLabelValues(operation, result).Inc()
}

// Discard records one silent no-op outcome.
func Discard(reason string) {
	discards.WithLabelValues(reason).Inc()
}
