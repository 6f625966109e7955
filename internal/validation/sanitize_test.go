package validation

import (
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		changed bool
	}{
		{"Honeycrisp Apples", "Honeycrisp Apples", false},
		{"  padded  ", "padded", true},
		{"hi<script>alert(1)</script>there", "hithere", true},
		{"<SCRIPT src='x'>steal()</SCRIPT>ok", "ok", true},
		{"javascript:alert(1)", "alert(1)", true},
		{"<img onerror=steal()>", "<img steal()>", true},
	}
	for _, c := range cases {
		got, changed := SanitizeString(c.in)
		if got != c.want || changed != c.changed {
			t.Fatalf("SanitizeString(%q) = %q/%v, want %q/%v", c.in, got, changed, c.want, c.changed)
		}
	}
}

func TestValidateStruct_SanitizesNestedInput(t *testing.T) {
	req := validSubmitRequest()
	req.CustomerName = "  Ada Crane<script>x</script>  "
	req.Items[0].ProductName = "  Honeycrisp Apples  "

	out := ValidateStruct(testMonitor(), New(), req, Options{Scope: "test"})
	if !out.Success {
		t.Fatalf("expected success, got %v", out.Errors)
	}
	if !out.Sanitized {
		t.Fatal("expected sanitized flag")
	}
	if out.Data.CustomerName != "Ada Crane" {
		t.Fatalf("name not sanitized: %q", out.Data.CustomerName)
	}
	if out.Data.Items[0].ProductName != "Honeycrisp Apples" {
		t.Fatalf("item name not sanitized: %q", out.Data.Items[0].ProductName)
	}
}

func TestSanitizeRecord_Nested(t *testing.T) {
	rec := map[string]any{
		"customer_name": "  Ada<script>x</script>  ",
		"instructions":  "leave at gate",
		"items": []any{
			map[string]any{"product_name": "  Wildflower Honey  "},
		},
	}

	if !sanitizeRecord(rec) {
		t.Fatal("expected change report")
	}
	if rec["customer_name"] != "Ada" {
		t.Fatalf("name not sanitized: %q", rec["customer_name"])
	}
	item := rec["items"].([]any)[0].(map[string]any)
	if item["product_name"] != "Wildflower Honey" {
		t.Fatalf("nested item not sanitized: %q", item["product_name"])
	}
	if rec["instructions"] != "leave at gate" {
		t.Fatal("clean value must stay untouched")
	}
}

func TestSanitizeRecord_CaseInsensitiveScript(t *testing.T) {
	rec := map[string]any{"note": "a<ScRiPt>bad()</sCrIpT>b"}
	sanitizeRecord(rec)
	if strings.Contains(rec["note"].(string), "bad") {
		t.Fatalf("script not stripped: %q", rec["note"])
	}
}
