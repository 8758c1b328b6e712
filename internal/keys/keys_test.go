package keys

import (
	"strings"
	"testing"
)

func TestEntryKeepsShortSkus(t *testing.T) {
	if got := Entry("google", "coins_100"); got != "sku:google:coins_100" {
		t.Fatalf("got %q", got)
	}
	if got := Scope("google"); got != "skus:google" {
		t.Fatalf("got %q", got)
	}
}

func TestEntryHashesAmbiguousSkus(t *testing.T) {
	long := strings.Repeat("x", maxRaw+1)
	cases := []string{long, "a:b", "#abc"}
	seen := map[string]string{}
	for _, sku := range cases {
		k := Entry("ns", sku)
		if !strings.HasPrefix(k, "sku:ns:#") {
			t.Fatalf("%q: expected hashed key, got %q", sku, k)
		}
		if len(k) != len("sku:ns:#")+16 {
			t.Fatalf("%q: unexpected key length %d", sku, len(k))
		}
		if prev, dup := seen[k]; dup {
			t.Fatalf("collision between %q and %q", prev, sku)
		}
		seen[k] = sku
		if Entry("ns", sku) != k {
			t.Fatalf("%q: key is not deterministic", sku)
		}
	}
}
