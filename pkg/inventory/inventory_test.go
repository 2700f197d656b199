package inventory

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/netcheck-network/netcheck/pkg/dialect"
)

const inventoryYAML = `
devices:
  router-nyc:
    host: 10.0.0.1
    user: netops
    password: secret
    vendor: drivenets
  ceos-1:
    host: 10.0.0.2
    port: 2222
    user: admin
    vendor: arista
`

func TestLoadInventory(t *testing.T) {
	inv, err := Load([]byte(inventoryYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := inv.Names(); !reflect.DeepEqual(got, []string{"ceos-1", "router-nyc"}) {
		t.Errorf("Names = %v", got)
	}

	d, err := inv.Device("router-nyc")
	if err != nil {
		t.Fatalf("Device: %v", err)
	}
	target := d.Target()
	if target.Device != "router-nyc" || target.Host != "10.0.0.1" || target.Vendor != dialect.VendorDriveNets {
		t.Errorf("target = %+v", target)
	}

	ceos, _ := inv.Device("ceos-1")
	if ceos.Port != 2222 || ceos.Password != "" {
		t.Errorf("ceos entry = %+v", ceos)
	}

	if _, err := inv.Device("router-sfo"); err == nil {
		t.Error("expected error for unknown device")
	}
}

func TestLoadInventoryValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "empty",
			yaml: "devices: {}\n",
			want: "no devices",
		},
		{
			name: "missing host",
			yaml: "devices:\n  r1:\n    user: a\n    vendor: arista\n",
			want: "host is required",
		},
		{
			name: "missing user",
			yaml: "devices:\n  r1:\n    host: 10.0.0.1\n    vendor: arista\n",
			want: "user is required",
		},
		{
			name: "unknown vendor",
			yaml: "devices:\n  r1:\n    host: 10.0.0.1\n    user: a\n    vendor: junos\n",
			want: "unknown vendor",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load([]byte(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Load = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestLeaseKey(t *testing.T) {
	if got := leaseKey("router-nyc"); got != "NETCHECK_LEASE|router-nyc" {
		t.Errorf("leaseKey = %q", got)
	}
}

func TestLeaseConnectUnreachable(t *testing.T) {
	lc := NewLeaseClient("127.0.0.1:1")
	defer lc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := lc.Connect(ctx); err == nil {
		t.Error("expected error connecting to an unreachable backend")
	}
}

func TestLeaseAddr(t *testing.T) {
	if got := leaseAddr("10.1.1.1:6379"); got != "10.1.1.1:6379" {
		t.Errorf("explicit addr = %q", got)
	}
	t.Setenv(RedisAddrEnv, "10.2.2.2:6380")
	if got := leaseAddr(""); got != "10.2.2.2:6380" {
		t.Errorf("env addr = %q", got)
	}
	t.Setenv(RedisAddrEnv, "")
	if got := leaseAddr(""); got != "127.0.0.1:6379" {
		t.Errorf("default addr = %q", got)
	}
}
