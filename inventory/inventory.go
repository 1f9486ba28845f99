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

// Package inventory loads the switch inventory the driver manages. The
// file follows the Ansible inventory layout: switches live under
// all.hosts with their connection variables, plus a top-level
// port_mappings section tying compute host ids to switch ports.
package inventory

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v2"
	"k8s.io/apimachinery/pkg/util/wait"
)

// CustomParamPrefix marks per-switch variables forwarded to the device
// gateway with the prefix stripped.
const CustomParamPrefix = "cp_"

// extraParams are well-known per-switch variables forwarded to the
// device gateway as-is.
var extraParams = map[string]struct{}{
	"stp_edge": {},
}

// booleanParams are coerced from their string forms.
var booleanParams = map[string]struct{}{
	"manage_vlans": {},
	"stp_edge":     {},
}

// Switch is one managed device from the inventory.
type Switch struct {
	Name string
	// MAC is the chassis MAC when the inventory provides one, used to
	// resolve introspected link info that carries no switch name.
	MAC string
	// ManageVLANs gates VLAN create and delete on this device.
	ManageVLANs bool
	// Params holds the extra and custom variables passed to the device
	// gateway on every operation against this switch.
	Params map[string]interface{}
}

// PortMapping ties a compute host uplink to a physical switch port.
type PortMapping struct {
	SwitchName string
	SwitchPort string
}

/********************************************************************************
	Inventory
*********************************************************************************/

// Inventory is the in-memory switch table. Lookups are safe for
// concurrent use; Reload swaps the whole table atomically.
type Inventory struct {
	sync.Mutex
	path         string
	switches     map[string]*Switch
	macTable     map[string]string
	portMappings map[string][]PortMapping
}

type inventoryFile struct {
	All struct {
		Hosts map[string]map[string]interface{} `yaml:"hosts"`
	} `yaml:"all"`
	PortMappings map[string][]string `yaml:"port_mappings"`
}

// Load reads and parses the inventory file.
func Load(path string) (*Inventory, error) {
	inv := &Inventory{path: path}
	if err := inv.Reload(); err != nil {
		return nil, err
	}
	return inv, nil
}

// Parse builds an inventory from raw file contents.
func Parse(data []byte) (*Inventory, error) {
	inv := &Inventory{}
	if err := inv.load(data); err != nil {
		return nil, err
	}
	return inv, nil
}

// Reload re-reads the inventory file this table was loaded from.
func (inv *Inventory) Reload() error {
	if inv.path == "" {
		return fmt.Errorf("{Reload} inventory has no backing file")
	}
	data, err := os.ReadFile(inv.path)
	if err != nil {
		return fmt.Errorf("{Reload} %w", err)
	}
	return inv.load(data)
}

// ReloadEvery re-reads the inventory file on the given interval until
// the context is canceled. Failed reloads keep the previous table.
func (inv *Inventory) ReloadEvery(ctx context.Context, interval time.Duration) {
	wait.UntilWithContext(ctx, func(context.Context) {
		if err := inv.Reload(); err != nil {
			log.Printf("inventory reload failed: %v", err)
		}
	}, interval)
}

func (inv *Inventory) load(data []byte) error {
	var f inventoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("{load} %w", err)
	}

	switches := make(map[string]*Switch, len(f.All.Hosts))
	macTable := make(map[string]string)
	for name, vars := range f.All.Hosts {
		sw := &Switch{
			Name:        name,
			ManageVLANs: true,
			Params:      map[string]interface{}{},
		}
		for key, val := range vars {
			if _, ok := booleanParams[key]; ok {
				b, err := parseBool(val)
				if err != nil {
					return fmt.Errorf("{load} switch %q: %s: %w", name, key, err)
				}
				val = b
			}
			switch {
			case key == "mac":
				mac := strings.ToUpper(fmt.Sprintf("%v", val))
				sw.MAC = mac
				macTable[mac] = name
			case key == "manage_vlans":
				sw.ManageVLANs = val.(bool)
			case strings.HasPrefix(key, CustomParamPrefix):
				sw.Params[strings.TrimPrefix(key, CustomParamPrefix)] = val
			default:
				if _, ok := extraParams[key]; ok {
					sw.Params[key] = val
				}
				// remaining vars are connection detail owned by the
				// device gateway
			}
		}
		switches[name] = sw
	}

	portMappings := make(map[string][]PortMapping, len(f.PortMappings))
	for hostID, entries := range f.PortMappings {
		var mappings []PortMapping
		for _, entry := range entries {
			for _, item := range strings.Split(entry, ",") {
				item = strings.TrimSpace(item)
				parts := strings.Split(item, "::")
				if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
					log.Printf("inventory: %q is not a valid switch::port mapping for host %q, skipping", item, hostID)
					continue
				}
				mappings = append(mappings, PortMapping{SwitchName: parts[0], SwitchPort: parts[1]})
			}
		}
		// prune empty mappings
		if len(mappings) > 0 {
			portMappings[hostID] = mappings
		}
	}

	inv.Lock()
	defer inv.Unlock()
	inv.switches = switches
	inv.macTable = macTable
	inv.portMappings = portMappings
	return nil
}

// Get .
func (inv *Inventory) Get(name string) (*Switch, bool) {
	inv.Lock()
	defer inv.Unlock()
	sw, ok := inv.switches[name]
	return sw, ok
}

// HasSwitch .
func (inv *Inventory) HasSwitch(name string) bool {
	_, ok := inv.Get(name)
	return ok
}

// SwitchNames returns all inventory switch names, sorted.
func (inv *Inventory) SwitchNames() []string {
	inv.Lock()
	defer inv.Unlock()
	names := make([]string, 0, len(inv.switches))
	for name := range inv.switches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindByMAC returns the switch name registered for a chassis MAC.
func (inv *Inventory) FindByMAC(mac string) (string, bool) {
	inv.Lock()
	defer inv.Unlock()
	name, ok := inv.macTable[strings.ToUpper(mac)]
	return name, ok
}

// Mappings returns the switch ports mapped to a compute host id. A
// host with no entry returns nil.
func (inv *Inventory) Mappings(hostID string) []PortMapping {
	inv.Lock()
	defer inv.Unlock()
	return inv.portMappings[hostID]
}

// Params returns the gateway parameters of a switch, nil for unknown
// switches.
func (inv *Inventory) Params(name string) map[string]interface{} {
	sw, ok := inv.Get(name)
	if !ok {
		return nil
	}
	return sw.Params
}

func parseBool(val interface{}) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
	case int:
		return v != 0, nil
	}
	return false, fmt.Errorf("%v is not a boolean value", val)
}
