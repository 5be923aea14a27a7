package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPolicyDefaults(t *testing.T) {
	var cfg PolicyConfig
	tc := TokenCreate{Identifier: "CUSTOMER_ID"}
	cfg.Apply(&tc)
	if tc.Type != TypeString || tc.Method != MethodFormatPreserving {
		t.Fatalf("global defaults not applied: %+v", tc)
	}
}

func TestPolicyOverridesByIdentifier(t *testing.T) {
	cfg := PolicyConfig{Policies: []Policy{
		{Identifier: "ORDER_ID", Type: TypeInt, Method: MethodRandom},
	}}

	tc := TokenCreate{Identifier: "ORDER_ID"}
	cfg.Apply(&tc)
	if tc.Type != TypeInt || tc.Method != MethodRandom {
		t.Fatalf("identifier policy not applied: %+v", tc)
	}

	// explicit request fields win over the policy
	explicit := TokenCreate{Identifier: "ORDER_ID", Type: TypeString}
	cfg.Apply(&explicit)
	if explicit.Type != TypeString {
		t.Fatalf("explicit type overridden: %+v", explicit)
	}
	if explicit.Method != MethodRandom {
		t.Fatalf("empty method should still come from policy: %+v", explicit)
	}
}

func TestLoadPolicies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.yaml")
	content := []byte(`policies:
  - identifier: CUSTOMER_ID
    type: STRING
    method: FORMAT_PRESERVING
  - identifier: ORDER_ID
    type: INT
    method: RANDOM
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := LoadPolicies(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.Policies) != 2 {
		t.Fatalf("expected 2 policies, got %d", len(cfg.Policies))
	}
	if cfg.Policies[1].Method != MethodRandom {
		t.Fatalf("unexpected policy: %+v", cfg.Policies[1])
	}

	empty, err := LoadPolicies("")
	if err != nil || len(empty.Policies) != 0 {
		t.Fatalf("empty path must mean no overrides, got %+v %v", empty, err)
	}

	if _, err := LoadPolicies(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("missing file must error")
	}
}
