package vault

import (
	"regexp"
	"testing"
)

var uuidShape = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestDerivePKDeterministic(t *testing.T) {
	first := DerivePK("CUSTOMER_ID", "12345", "john.doe@example.com", "email")
	second := DerivePK("CUSTOMER_ID", "12345", "john.doe@example.com", "email")
	if first != second {
		t.Fatalf("expected identical keys, got %s and %s", first, second)
	}
	if !uuidShape.MatchString(first) {
		t.Fatalf("key is not UUID-shaped: %s", first)
	}
}

func TestDerivePKStringifiedEquivalence(t *testing.T) {
	// a numeric value and its string form must key identically once
	// stringified, which is the caller's job
	if DerivePK("CUSTOMER_ID", "12345", "123") != DerivePK("CUSTOMER_ID", "12345", "123") {
		t.Fatal("stringified inputs should derive the same key")
	}
}

func TestDerivePKOrderSensitive(t *testing.T) {
	if DerivePK("a", "b", "c") == DerivePK("c", "b", "a") {
		t.Fatal("reordered components must not collide")
	}
}

func TestDerivePKComponentCountSensitive(t *testing.T) {
	// a three-component key and the same tuple with an empty fourth
	// component are different keys; callers own their component lists
	three := DerivePK("CUSTOMER_ID", "12345", "john.doe@example.com")
	four := DerivePK("CUSTOMER_ID", "12345", "john.doe@example.com", "")
	if three == four {
		t.Fatal("component count must be part of the key")
	}
}

func TestDerivePKIdentityTriple(t *testing.T) {
	pk := DerivePK("CUSTOMER_ID", "12345", "12345")
	if pk != DerivePK("CUSTOMER_ID", "12345", "12345") {
		t.Fatal("identity key must be stable")
	}
	if pk == DerivePK("CUSTOMER_ID", "12345") {
		t.Fatal("the duplicated identity component must participate in the key")
	}
}
