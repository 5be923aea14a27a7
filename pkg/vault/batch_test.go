package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

func deidentifyRequest(calls ...TokenCall) RemoteFunctionRequest {
	return RemoteFunctionRequest{
		RequestID:   "124ab1c",
		Caller:      "//bigquery.googleapis.com/projects/myproject/jobs/test",
		SessionUser: "test-user@test-company.com",
		UserDefinedContext: UserDefinedContext{
			Action:    ActionDeidentify,
			TokenType: TypeString,
		},
		Calls: calls,
	}
}

func call(elements ...string) TokenCall {
	var c TokenCall
	payload, _ := json.Marshal(elements)
	if err := json.Unmarshal(payload, &c); err != nil {
		panic(err)
	}
	return c
}

func TestDeidentifyReidentifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	batch := NewBatchProcessor(store)

	resp, err := batch.Process(ctx, deidentifyRequest(
		call("CUSTOMER_ID", "12345", "john.doe@example.com"),
	))
	if err != nil {
		t.Fatalf("deidentify failed: %v", err)
	}
	surrogate, ok := resp.Replies[0].(string)
	if !ok || surrogate == "john.doe@example.com" {
		t.Fatalf("expected a surrogate reply, got %v", resp.Replies[0])
	}

	identity, err := store.Get(ctx, DerivePK("CUSTOMER_ID", "12345", "12345"))
	if err != nil || identity == nil {
		t.Fatalf("identity missing: %v %v", identity, err)
	}

	back, err := batch.Process(ctx, RemoteFunctionRequest{
		UserDefinedContext: UserDefinedContext{Action: ActionReidentify},
		Calls: []TokenCall{
			call("CUSTOMER_ID", identity.IdentityToken, surrogate),
		},
	})
	if err != nil {
		t.Fatalf("reidentify failed: %v", err)
	}
	if back.Replies[0] != "john.doe@example.com" {
		t.Fatalf("round trip broken: got %v", back.Replies[0])
	}
}

func TestDeidentifyPreservesCallOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	batch := NewBatchProcessor(store)

	var calls []TokenCall
	for i := 0; i < 50; i++ {
		calls = append(calls, call("CUSTOMER_ID", "12345", fmt.Sprintf("value-%02d", i)))
	}
	resp, err := batch.Process(ctx, deidentifyRequest(calls...))
	if err != nil {
		t.Fatalf("deidentify failed: %v", err)
	}
	if len(resp.Replies) != len(calls) {
		t.Fatalf("expected %d replies, got %d", len(calls), len(resp.Replies))
	}

	// rerunning the batch must return the same surrogates in the same slots
	again, err := batch.Process(ctx, deidentifyRequest(calls...))
	if err != nil {
		t.Fatalf("second deidentify failed: %v", err)
	}
	for i := range resp.Replies {
		if resp.Replies[i] != again.Replies[i] {
			t.Fatalf("slot %d changed between runs: %v vs %v", i, resp.Replies[i], again.Replies[i])
		}
	}
}

func TestReidentifyIsolatesMisses(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	batch := NewBatchProcessor(store)

	resp, err := batch.Process(ctx, deidentifyRequest(
		call("CUSTOMER_ID", "12345", "john.doe@example.com"),
	))
	if err != nil {
		t.Fatalf("deidentify failed: %v", err)
	}
	surrogate := resp.Replies[0].(string)

	identity, err := store.Get(ctx, DerivePK("CUSTOMER_ID", "12345", "12345"))
	if err != nil || identity == nil {
		t.Fatalf("identity missing: %v %v", identity, err)
	}

	back, err := batch.Process(ctx, RemoteFunctionRequest{
		UserDefinedContext: UserDefinedContext{Action: ActionReidentify},
		Calls: []TokenCall{
			call("CUSTOMER_ID", identity.IdentityToken, surrogate),
			call("CUSTOMER_ID", identity.IdentityToken, "ffffffff-ffff-ffff-ffff-ffffffffffff"),
		},
	})
	if err != nil {
		t.Fatalf("a missing token must not fail the batch: %v", err)
	}
	if back.Replies[0] != "john.doe@example.com" {
		t.Fatalf("expected the original value first, got %v", back.Replies[0])
	}
	if back.Replies[1] != nil {
		t.Fatalf("expected a null reply for the unknown token, got %v", back.Replies[1])
	}
}

func TestUnknownActionYieldsNoResult(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	batch := NewBatchProcessor(store)

	resp, err := batch.Process(ctx, RemoteFunctionRequest{
		UserDefinedContext: UserDefinedContext{Action: "ROTATE"},
		Calls:              []TokenCall{call("CUSTOMER_ID", "12345", "x")},
	})
	if err != nil {
		t.Fatalf("unknown action must not error: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected absent response, got %+v", resp)
	}
}

func TestDeidentifyTypedReplies(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	batch := NewBatchProcessor(store)

	req := deidentifyRequest(call("CUSTOMER_ID", "12345", "4711"))
	req.UserDefinedContext.TokenType = TypeInt
	resp, err := batch.Process(ctx, req)
	if err != nil {
		t.Fatalf("deidentify failed: %v", err)
	}
	if _, ok := resp.Replies[0].(int64); !ok {
		t.Fatalf("INT batch must reply with numbers, got %T", resp.Replies[0])
	}
}

func TestCallDecodesPositionalArrays(t *testing.T) {
	var c TokenCall
	if err := json.Unmarshal([]byte(`["CUSTOMER_ID", 12345, "a@b.se", "email"]`), &c); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if c.Subject != "12345" {
		t.Fatalf("numbers must stringify to their literal text, got %q", c.Subject)
	}
	if c.Field != "email" {
		t.Fatalf("fourth element must populate field, got %q", c.Field)
	}

	got := DerivePK(c.components()...)
	want := DerivePK("CUSTOMER_ID", "12345", "a@b.se", "email")
	if got != want {
		t.Fatalf("component list altered: %s vs %s", got, want)
	}

	var short TokenCall
	if err := json.Unmarshal([]byte(`["CUSTOMER_ID", "12345", "a@b.se"]`), &short); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(short.components()) != 3 {
		t.Fatalf("a three-element call must keep three components, got %v", short.components())
	}

	var bad TokenCall
	if err := json.Unmarshal([]byte(`["only", "two"]`), &bad); err == nil {
		t.Fatal("two-element call must be rejected")
	}
}
