package validation

import "testing"

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ada@Example.COM "); got != "ada@example.com" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone("+1 (206) 555-0123"); got != "12065550123" {
		t.Fatalf("got %q", got)
	}
}

func TestValidateStruct_Transforms(t *testing.T) {
	req := validSubmitRequest()
	req.CustomerEmail = "Ada@Example.com"
	req.CustomerPhone = "(206) 555-0123"

	out := ValidateStruct(testMonitor(), New(), req, Options{Transform: true, Scope: "test"})
	if !out.Success {
		t.Fatalf("expected success, got %v", out.Errors)
	}
	if !out.Transformed {
		t.Fatal("expected transformed flag")
	}
	if out.Data.CustomerEmail != "ada@example.com" {
		t.Fatalf("email not normalized: %q", out.Data.CustomerEmail)
	}
	if out.Data.CustomerPhone != "2065550123" {
		t.Fatalf("phone not normalized: %q", out.Data.CustomerPhone)
	}
}

func TestCoerceNumericStrings(t *testing.T) {
	rec := map[string]any{
		"customer_name": "Ada Crane",
		"subtotal":      "7.98",
		"tax":           "0.68",
		"customer_id":   "42", // not a money/quantity key, stays a string
		"items": []any{
			map[string]any{"unit_price": "2.49", "quantity": "2"},
		},
	}

	if !CoerceNumericStrings(rec) {
		t.Fatal("expected change report")
	}
	if rec["subtotal"] != 7.98 || rec["tax"] != 0.68 {
		t.Fatalf("totals not coerced: %v / %v", rec["subtotal"], rec["tax"])
	}
	if _, ok := rec["customer_id"].(string); !ok {
		t.Fatal("customer_id must stay a string")
	}
	item := rec["items"].([]any)[0].(map[string]any)
	if item["unit_price"] != 2.49 || item["quantity"] != 2.0 {
		t.Fatalf("item not coerced: %v / %v", item["unit_price"], item["quantity"])
	}
}

func TestCoerceNumericStrings_NonNumericKept(t *testing.T) {
	rec := map[string]any{"total": "n/a"}
	if CoerceNumericStrings(rec) {
		t.Fatal("expected no change")
	}
	if rec["total"] != "n/a" {
		t.Fatalf("value mangled: %v", rec["total"])
	}
}
