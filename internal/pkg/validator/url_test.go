package validator

import (
	"context"
	"testing"
)

func TestValidateTargetURL(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://example.com/hook", false},
		{"valid https with port", "https://example.com:8443/hook", false},
		{"empty", "", true},
		{"plain http", "http://example.com/hook", true},
		{"missing host", "https://", true},
		{"localhost", "https://localhost/hook", true},
		{"loopback ip", "https://127.0.0.1/hook", true},
		{"private ip", "https://10.0.0.5/hook", true},
		{"link local ip", "https://169.254.169.254/metadata", true},
		{"unspecified ip", "https://0.0.0.0/hook", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTargetURL(tc.url)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateTargetURL(%q) error = %v, wantErr %v", tc.url, err, tc.wantErr)
			}
		})
	}
}

func TestCheckDeliveryHostLiteralIPs(t *testing.T) {
	if err := CheckDeliveryHost("127.0.0.1"); err == nil {
		t.Error("expected loopback literal to be rejected")
	}
	if err := CheckDeliveryHost("192.168.1.10"); err == nil {
		t.Error("expected private literal to be rejected")
	}
	if err := CheckDeliveryHost("93.184.216.34"); err != nil {
		t.Errorf("expected public literal to pass, got %v", err)
	}
}

func TestGuardedDialContextRefusesInternalAddrs(t *testing.T) {
	ctx := context.Background()

	for _, addr := range []string{"127.0.0.1:443", "10.0.0.5:443", "169.254.169.254:80", "localhost:443"} {
		conn, err := GuardedDialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			t.Errorf("expected dial to %s to be refused", addr)
		}
	}

	if _, err := GuardedDialContext(ctx, "tcp", "no-port"); err == nil {
		t.Error("expected malformed address to be refused")
	}
}
