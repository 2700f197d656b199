// Package inventory loads device inventories and arbitrates device access
// across concurrent runs with Redis-backed leases. A CLI channel to a device
// tolerates exactly one driver; the lease makes that exclusivity hold across
// processes and hosts, not just goroutines.
package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/netcheck-network/netcheck/pkg/dialect"
	"github.com/netcheck-network/netcheck/pkg/session"
)

// Device is one inventory entry.
type Device struct {
	Name     string `yaml:"-"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	Vendor   string `yaml:"vendor"`
}

// Target converts the entry into a session target.
func (d *Device) Target() session.Target {
	return session.Target{
		Device:   d.Name,
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		Vendor:   dialect.Vendor(d.Vendor),
	}
}

// Inventory is a named set of devices.
type Inventory struct {
	Devices map[string]*Device `yaml:"devices"`
}

// Load parses and validates an inventory from YAML. Every device needs a
// host, a user, and a registered vendor; passwords may be omitted and
// prompted for at run time.
func Load(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}
	if len(inv.Devices) == 0 {
		return nil, fmt.Errorf("inventory has no devices")
	}
	for name, d := range inv.Devices {
		d.Name = name
		if d.Host == "" {
			return nil, fmt.Errorf("device %s: host is required", name)
		}
		if d.User == "" {
			return nil, fmt.Errorf("device %s: user is required", name)
		}
		if _, err := dialect.New(dialect.Vendor(d.Vendor)); err != nil {
			return nil, fmt.Errorf("device %s: %w", name, err)
		}
	}
	return &inv, nil
}

// LoadFile parses and validates an inventory YAML file.
func LoadFile(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}
	inv, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inv, nil
}

// Device looks up one entry by name.
func (inv *Inventory) Device(name string) (*Device, error) {
	d, ok := inv.Devices[name]
	if !ok {
		return nil, fmt.Errorf("device %s not in inventory (have: %v)", name, inv.Names())
	}
	return d, nil
}

// Names returns the device names, sorted.
func (inv *Inventory) Names() []string {
	var names []string
	for name := range inv.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
