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
	"errors"
	"fmt"
)

// Failure classes surfaced to the plugin framework. Callers match with
// errors.Is.
var (
	// ErrUnknownSwitch marks operations against a switch missing from
	// the inventory or the automation service.
	ErrUnknownSwitch = errors.New("switch not found in inventory")

	// ErrLinkInfoMissing marks baremetal ports whose binding profile
	// carries no usable link information.
	ErrLinkInfoMissing = errors.New("local link information missing from binding profile")

	// ErrInvalidArgument marks state-setting calls with a missing port
	// or switch location.
	ErrInvalidArgument = errors.New("invalid port state arguments")

	// ErrNetworkNotFound marks ports whose network is gone from the
	// control plane.
	ErrNetworkNotFound = errors.New("network not found")
)

// DeviceError wraps a failed device operation with its location.
type DeviceError struct {
	Operation  string
	SwitchName string
	SwitchPort string
	Err        error
}

func (e *DeviceError) Error() string {
	if e.SwitchPort == "" {
		return fmt.Sprintf("%s failed on %s: %s", e.Operation, e.SwitchName, e.Err)
	}
	return fmt.Sprintf("%s failed on %s port %s: %s", e.Operation, e.SwitchName, e.SwitchPort, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
