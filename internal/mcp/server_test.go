package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/johnrirwin/devicedeck/internal/cache"
	"github.com/johnrirwin/devicedeck/internal/catalog"
	"github.com/johnrirwin/devicedeck/internal/compare"
	"github.com/johnrirwin/devicedeck/internal/facets"
	"github.com/johnrirwin/devicedeck/internal/models"
	"github.com/johnrirwin/devicedeck/internal/testutil"
)

type fixedSource []models.CatalogItem

func (f fixedSource) Name() string { return "fixed" }

func (f fixedSource) Load(ctx context.Context, category models.Category) ([]models.CatalogItem, error) {
	if category != models.CategoryPhone {
		return nil, catalog.ErrNoItems
	}
	return f, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := testutil.NullLogger()
	c := cache.NewMemory(time.Minute)
	t.Cleanup(c.Stop)

	svc := catalog.NewService(fixedSource{
		{ID: "iphone", Category: models.CategoryPhone, Brand: "Apple", Model: "iPhone 15", Price: 69900,
			Attributes: map[string]string{"ram": "6GB"}, Flags: models.CatalogFlags{IsBestseller: true}},
		{ID: "s24", Category: models.CategoryPhone, Brand: "Samsung", Model: "Galaxy S24", Price: 74999,
			Attributes: map[string]string{"ram": "8GB"}},
		{ID: "redmi", Category: models.CategoryPhone, Brand: "Xiaomi", Model: "Redmi Note 13", Price: 17999,
			Attributes: map[string]string{"ram": "8GB"}},
	}, c, time.Minute, logger)

	handler := NewHandler(svc, facets.NewCatalog(facets.Default()), compare.NewService(svc), logger)
	return NewServer(handler, logger)
}

func serve(t *testing.T, s *Server, requests ...string) []Response {
	t.Helper()
	var out strings.Builder
	if err := s.Serve(context.Background(), strings.NewReader(strings.Join(requests, "\n")), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	var responses []Response
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func toolText(t *testing.T, resp Response) (string, bool) {
	t.Helper()
	data, _ := json.Marshal(resp.Result)
	var result CallToolResult
	if err := json.Unmarshal(data, &result); err != nil || len(result.Content) == 0 {
		t.Fatalf("unexpected tool result %s", data)
	}
	return result.Content[0].Text, result.IsError
}

func TestServe_Protocol(t *testing.T) {
	responses := serve(t, newTestServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"bogus"}`,
		`not json`,
	)

	if len(responses) != 4 {
		t.Fatalf("got %d responses, want 4 (notification has none)", len(responses))
	}

	initResult, _ := json.Marshal(responses[0].Result)
	if !strings.Contains(string(initResult), `"name":"devicedeck"`) {
		t.Errorf("initialize result = %s", initResult)
	}

	list, _ := json.Marshal(responses[1].Result)
	for _, tool := range []string{"search_devices", "get_device", "compare_devices", "list_filters"} {
		if !strings.Contains(string(list), `"`+tool+`"`) {
			t.Errorf("tools/list is missing %s", tool)
		}
	}

	if responses[2].Error == nil || responses[2].Error.Code != -32601 {
		t.Errorf("unknown method error = %+v", responses[2].Error)
	}
	if responses[3].Error == nil || responses[3].Error.Code != -32700 {
		t.Errorf("parse error = %+v", responses[3].Error)
	}
}

func TestServe_SearchDevices(t *testing.T) {
	responses := serve(t, newTestServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"search_devices","arguments":{"category":"mobiles","specs":{"RAM":["8gb"]},"sort":"price-low","limit":5}}}`,
	)

	text, isError := toolText(t, responses[0])
	if isError {
		t.Fatalf("search_devices failed: %s", text)
	}

	var result searchResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		t.Fatal(err)
	}
	if result.MatchCount != 2 || result.Items[0].ID != "redmi" || result.Items[1].ID != "s24" {
		t.Errorf("result = %+v", result)
	}
	if result.ActiveFilterCount != 1 {
		t.Errorf("ActiveFilterCount = %d, want 1", result.ActiveFilterCount)
	}
}

func TestServe_ToolErrors(t *testing.T) {
	responses := serve(t, newTestServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_device","arguments":{"id":"nope"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"search_devices","arguments":{"category":"watch"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"compare_devices","arguments":{"ids":["iphone"]}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"get_device","arguments":{"id":"s24"}}}`,
	)

	for i, want := range []string{"Device not found", "Unknown category", "at least 2"} {
		text, isError := toolText(t, responses[i])
		if !isError || !strings.Contains(text, want) {
			t.Errorf("response %d = %q (isError %v), want error containing %q", i, text, isError, want)
		}
	}

	text, isError := toolText(t, responses[3])
	if isError || !strings.Contains(text, "Galaxy S24") {
		t.Errorf("get_device = %q", text)
	}
}
