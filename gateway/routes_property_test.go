package gateway

import (
	"net/url"
	"testing"

	"pgregory.net/rapid"
)

func TestParamRoutesCaptureAnySegment(t *testing.T) {
	table := MustRouteTable(DefaultRoutes())
	reserved := map[string]bool{"search": true, "categories": true}

	rapid.Check(t, func(t *rapid.T) {
		id := rapid.StringMatching(`[A-Za-z0-9_.~-]{1,24}`).Draw(t, "id")
		if reserved[id] || id == "." || id == ".." {
			t.Skip("literal route")
		}

		m, ok := table.Match("GET", "/api/items/"+id)
		if !ok {
			t.Fatalf("no match for id %q", id)
		}
		if m.Rule.Destination != ItemService || m.Params["id"] != id {
			t.Fatalf("id %q routed to %s with params %v", id, m.Rule.Destination, m.Params)
		}
		if want := "/items/" + url.PathEscape(id); m.Path != want {
			t.Fatalf("rewrite = %q, want %q", m.Path, want)
		}
	})
}

func TestRewriteKeepsCapturedValues(t *testing.T) {
	table := MustRouteTable(DefaultRoutes())

	rapid.Check(t, func(t *rapid.T) {
		list := rapid.StringMatching(`[a-z0-9-]{1,16}`).Draw(t, "list")
		item := rapid.StringMatching(`[a-z0-9-]{1,16}`).Draw(t, "item")
		method := rapid.SampledFrom([]string{"PUT", "DELETE"}).Draw(t, "method")

		m, ok := table.Match(method, "/api/lists/"+list+"/items/"+item)
		if !ok {
			t.Fatalf("%s /api/lists/%s/items/%s did not match", method, list, item)
		}
		if want := "/lists/" + list + "/items/" + item; m.Path != want {
			t.Fatalf("rewrite = %q, want %q", m.Path, want)
		}
		if !m.Rule.AuthRequired {
			t.Fatal("list item routes require auth")
		}
	})
}
