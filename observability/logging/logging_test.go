package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Setup("payledgerd", "test", Options{Output: &buf})
	logger.Info("deposit accepted",
		slog.String("method", "payment_deposit"),
		slog.String("signature", "0xdeadbeef"),
		slog.String("jwt_secret", "hunter2"),
		slog.String("account", "0xa1"),
	)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["service"] != "payledgerd" || entry["env"] != "test" {
		t.Fatalf("missing service attributes: %v", entry)
	}
	if entry["severity"] != "INFO" || entry["message"] != "deposit accepted" {
		t.Fatalf("unexpected envelope: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", entry)
	}
	if entry["signature"] != RedactedValue || entry["jwt_secret"] != RedactedValue {
		t.Fatalf("sensitive values not masked: %v", entry)
	}
	if entry["account"] != "0xa1" || entry["method"] != "payment_deposit" {
		t.Fatalf("plain values altered: %v", entry)
	}
}

func TestSetupWritesRotatedFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "payledger.log")
	var buf bytes.Buffer
	logger := Setup("payledgerd", "", Options{Output: &buf, File: path, MaxSizeMB: 1})
	logger.Warn("ledger disabled")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "ledger disabled") {
		t.Fatalf("log file missing entry: %s", data)
	}
	if strings.Contains(buf.String(), `"env"`) {
		t.Fatalf("empty env must be omitted: %s", buf.String())
	}
}

func TestSensitiveKeys(t *testing.T) {
	for _, key := range []string{"signature", "Passphrase", "HMACSecret", "authorization"} {
		if !IsSensitive(key) {
			t.Fatalf("expected %q to be sensitive", key)
		}
	}
	for _, key := range RedactionAllowlist() {
		if IsSensitive(key) {
			t.Fatalf("allowlisted key %q must not be sensitive", key)
		}
	}
	if MaskValue("  ") != "  " {
		t.Fatalf("empty values must pass through")
	}
}
