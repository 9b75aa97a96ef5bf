package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/critter/internal/catalog"
	"github.com/hpungsan/critter/internal/clock"
	"github.com/hpungsan/critter/internal/config"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/ops"
	"github.com/hpungsan/critter/internal/random"
	"github.com/hpungsan/critter/internal/state"
)

const testCatalogYAML = `
species:
  - id: 133
    name: eevee
    types: [normal]
    sprite: https://img.example/133.png
    rare_sprite: https://img.example/shiny/133.png
    evolves_to: [134]
  - id: 134
    name: vaporeon
    types: [water]
    sprite: https://img.example/134.png
`

type testEnv struct {
	h   *Handlers
	p   *ops.Presenter
	gs  *state.GameState
	clk *clock.Fake
	cfg *config.Config
	dir string
}

// testSetup creates a presenter over an in-memory game and a YAML catalog.
func testSetup(t *testing.T, rnd *random.Scripted) *testEnv {
	t.Helper()

	static, err := catalog.ParseStatic([]byte(testCatalogYAML))
	if err != nil {
		t.Fatalf("failed to parse catalog: %v", err)
	}
	if rnd == nil {
		rnd = &random.Scripted{}
	}

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}

	clk := clock.NewFake(time.UnixMilli(1_700_000_000_000))
	logger := log.New(io.Discard, "", 0)
	gs := state.New(state.SettingsFrom(cfg), clk, logger)
	p := ops.New(ops.Deps{State: gs, Catalog: static, Random: rnd, Config: cfg, Clock: clk, Logger: logger})

	return &testEnv{h: NewHandlers(p), p: p, gs: gs, clk: clk, cfg: cfg, dir: dir}
}

func (e *testEnv) addEevee(t *testing.T) creature.Creature {
	t.Helper()
	c, err := e.gs.AddCreature(creature.Candidate{SpeciesID: 133, Name: "eevee", Types: []string{"normal"}})
	if err != nil {
		t.Fatalf("failed to add creature: %v", err)
	}
	return c
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// --- Registration ---

func TestNewServer_RegistersAllTools(t *testing.T) {
	env := testSetup(t, nil)

	s := NewServer(env.p, env.cfg, "test")
	tools := s.ListTools()

	if len(tools) != len(toolRegistry) {
		t.Fatalf("registered %d tools, want %d", len(tools), len(toolRegistry))
	}
	for name := range toolRegistry {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestNewServer_ToolDefsMatchRegistryNames(t *testing.T) {
	for name, entry := range toolRegistry {
		if entry.def.Name != name {
			t.Errorf("registry key %q has tool def named %q", name, entry.def.Name)
		}
		if GetTypeForTool(name) == "" {
			t.Errorf("tool %q has no type prefix", name)
		}
	}
}

func TestNewServer_DisabledTools(t *testing.T) {
	env := testSetup(t, nil)
	env.cfg.DisabledTools = []string{"creature_recycle", "game_import"}

	s := NewServer(env.p, env.cfg, "test")
	tools := s.ListTools()

	if len(tools) != len(toolRegistry)-2 {
		t.Fatalf("registered %d tools, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range env.cfg.DisabledTools {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q was registered", name)
		}
	}
	if _, ok := tools["creature_list"]; !ok {
		t.Error("creature_list should still be registered")
	}
}

func TestNewServer_DisabledTypes(t *testing.T) {
	env := testSetup(t, nil)
	env.cfg.DisabledTypes = []string{"shop", "game"}

	s := NewServer(env.p, env.cfg, "test")
	tools := s.ListTools()

	for name := range tools {
		if typ := GetTypeForTool(name); typ == "shop" || typ == "game" {
			t.Errorf("tool %q of disabled type %q was registered", name, typ)
		}
	}
	if _, ok := tools["capsule_open"]; !ok {
		t.Error("capsule_open should still be registered")
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"empty", nil, []string{}},
		{"known", []string{"egg_hatch", "shop_buy_rare"}, []string{}},
		{"unknown", []string{"egg_hatch", "egg_fry"}, []string{"egg_fry"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateDisabledTools(tt.input)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("ValidateDisabledTools(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	got := ValidateDisabledTypes([]string{"egg", "pokeball", "shop"})
	if len(got) != 1 || got[0] != "pokeball" {
		t.Errorf("ValidateDisabledTypes = %v, want [pokeball]", got)
	}
}

func TestGetTypeForTool(t *testing.T) {
	tests := map[string]string{
		"egg_hatch":        "egg",
		"shop_buy_capsule": "shop",
		"game_status":      "game",
		"nounderscore":     "",
		"_leading":         "",
	}
	for name, want := range tests {
		if got := GetTypeForTool(name); got != want {
			t.Errorf("GetTypeForTool(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExpandTypesToTools(t *testing.T) {
	if got := ExpandTypesToTools(nil); got != nil {
		t.Errorf("ExpandTypesToTools(nil) = %v, want nil", got)
	}

	got := ExpandTypesToTools([]string{"egg"})
	sort.Strings(got)
	want := []string{"egg_hatch", "egg_list", "egg_warm"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("ExpandTypesToTools([egg]) = %v, want %v", got, want)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 17 {
		t.Errorf("AllToolNames() returned %d names, want 17", len(names))
	}
	for _, typ := range KnownTypes {
		if len(ExpandTypesToTools([]string{typ})) == 0 {
			t.Errorf("type %q has no tools", typ)
		}
	}
}

// --- Handlers ---

func TestHandleStatus(t *testing.T) {
	env := testSetup(t, nil)

	result, err := env.h.HandleStatus(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if out["capsules"] != float64(3) || out["max_capsules"] != float64(5) {
		t.Errorf("status = %v", out)
	}
}

func TestHandleOpenCapsule(t *testing.T) {
	env := testSetup(t, &random.Scripted{Floats: []float64{0.1, 0.9}, Ints: []int{0}})

	result, err := env.h.HandleOpenCapsule(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if out["outcome"] != "creature" {
		t.Fatalf("outcome = %v, want creature", out["outcome"])
	}
	c := out["creature"].(map[string]any)
	if c["name"] != "eevee" || c["is_rare_variant"] != false {
		t.Errorf("creature = %v", c)
	}
	if out["capsules"] != float64(2) {
		t.Errorf("capsules = %v, want 2", out["capsules"])
	}
}

func TestHandleOpenCapsule_NoCapsules(t *testing.T) {
	env := testSetup(t, &random.Scripted{Floats: []float64{0.9}})
	ctx := context.Background()

	for i := 0; i < env.cfg.InitialCapsules; i++ {
		result, _ := env.h.HandleOpenCapsule(ctx, makeRequest(nil))
		if result.IsError {
			t.Fatalf("open %d failed: %s", i, extractErrorMessage(result))
		}
	}

	result, err := env.h.HandleOpenCapsule(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, string(errors.ErrInsufficientResource))
}

func TestHandleListCreatures(t *testing.T) {
	env := testSetup(t, nil)
	ctx := context.Background()
	env.addEevee(t)
	env.addEevee(t)

	tests := []struct {
		name      string
		args      map[string]any
		wantCount int
		wantError string
	}{
		{"default", nil, 2, ""},
		{"by species", map[string]any{"species_id": 133}, 2, ""},
		{"other species", map[string]any{"species_id": 134}, 0, ""},
		{"by type", map[string]any{"type": "water"}, 0, ""},
		{"unseen", map[string]any{"unseen_only": true}, 2, ""},
		{"paged", map[string]any{"limit": 1, "offset": 1}, 1, ""},
		{"limit clamped", map[string]any{"limit": 501}, 2, ""},
		{"negative offset", map[string]any{"offset": -1}, 0, string(errors.ErrInvalidInput)},
		{"bad type", map[string]any{"limit": "ten"}, 0, string(errors.ErrInvalidInput)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.h.HandleListCreatures(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.wantError != "" {
				assertErrorCode(t, result, tt.wantError)
				return
			}
			out := parseOutput(t, result)
			items, _ := out["items"].([]any)
			if len(items) != tt.wantCount {
				t.Errorf("got %d items, want %d", len(items), tt.wantCount)
			}
		})
	}
}

func TestHandleSeenAndPhoto(t *testing.T) {
	env := testSetup(t, nil)
	ctx := context.Background()
	c := env.addEevee(t)

	result, _ := env.h.HandleSeen(ctx, makeRequest(map[string]any{"instance_id": c.InstanceID}))
	if out := parseOutput(t, result); out["is_unseen"] != false {
		t.Errorf("is_unseen = %v, want false", out["is_unseen"])
	}

	result, _ = env.h.HandleSeen(ctx, makeRequest(map[string]any{"instance_id": "missing"}))
	assertErrorCode(t, result, string(errors.ErrNotFound))

	result, _ = env.h.HandlePhoto(ctx, makeRequest(map[string]any{
		"instance_id": c.InstanceID,
		"image_ref":   "https://img.example/photo.png",
	}))
	out := parseOutput(t, result)
	if out["image_ref"] != "https://img.example/photo.png" {
		t.Errorf("photo = %v", out)
	}
}

func TestHandleEvolve(t *testing.T) {
	env := testSetup(t, nil)
	ctx := context.Background()
	a := env.addEevee(t)
	b := env.addEevee(t)

	result, _ := env.h.HandleEvolve(ctx, makeRequest(map[string]any{"instance_ids": []any{a.InstanceID}}))
	assertErrorCode(t, result, string(errors.ErrInvalidInput))

	result, err := env.h.HandleEvolve(ctx, makeRequest(map[string]any{"instance_ids": []any{a.InstanceID, b.InstanceID}}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	evolved := out["evolved"].(map[string]any)
	if evolved["name"] != "vaporeon" {
		t.Errorf("evolved = %v, want vaporeon", evolved["name"])
	}
	if len(env.gs.Creatures()) != 1 {
		t.Errorf("collection has %d creatures, want 1", len(env.gs.Creatures()))
	}
}

func TestHandleBreedAndCooldowns(t *testing.T) {
	env := testSetup(t, &random.Scripted{Ints: []int{0}})
	ctx := context.Background()
	a := env.addEevee(t)
	b := env.addEevee(t)
	ids := []any{a.InstanceID, b.InstanceID}

	result, err := env.h.HandleBreed(ctx, makeRequest(map[string]any{"instance_ids": ids}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	egg := out["egg"].(map[string]any)
	if egg["is_breeding_egg"] != true {
		t.Errorf("egg = %v", egg)
	}

	result, _ = env.h.HandleBreed(ctx, makeRequest(map[string]any{"instance_ids": ids}))
	assertErrorCode(t, result, string(errors.ErrCooldownActive))

	result, _ = env.h.HandleCooldowns(ctx, makeRequest(nil))
	out = parseOutput(t, result)
	if cds, _ := out["cooldowns"].([]any); len(cds) != 2 {
		t.Errorf("got %d cooldowns, want 2", len(cds))
	}
}

func TestHandleRecycle(t *testing.T) {
	env := testSetup(t, nil)
	ctx := context.Background()
	c := env.addEevee(t)

	result, err := env.h.HandleRecycle(ctx, makeRequest(map[string]any{"instance_ids": []any{c.InstanceID}}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if recycled, _ := out["recycled"].([]any); len(recycled) != 1 {
		t.Errorf("recycled = %v", out["recycled"])
	}
	if len(env.gs.Creatures()) != 0 {
		t.Errorf("collection has %d creatures, want 0", len(env.gs.Creatures()))
	}
}

func TestHandleEggs(t *testing.T) {
	env := testSetup(t, &random.Scripted{Floats: []float64{0.9}, Ints: []int{0}})
	ctx := context.Background()

	// 0.9 is above the creature odds, so the capsule yields an egg.
	result, _ := env.h.HandleOpenCapsule(ctx, makeRequest(nil))
	out := parseOutput(t, result)
	if out["outcome"] != "egg" {
		t.Fatalf("outcome = %v, want egg", out["outcome"])
	}
	eggID := out["egg"].(map[string]any)["instance_id"].(string)

	result, _ = env.h.HandleListEggs(ctx, makeRequest(nil))
	out = parseOutput(t, result)
	items := out["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["status"] != "INCUBATING" {
		t.Fatalf("eggs = %v", items)
	}

	result, _ = env.h.HandleHatch(ctx, makeRequest(map[string]any{"egg_id": eggID}))
	assertErrorCode(t, result, string(errors.ErrEggNotReady))

	result, _ = env.h.HandleWarm(ctx, makeRequest(map[string]any{"index": 0}))
	out = parseOutput(t, result)
	if out["reduced_ms"].(float64) <= 0 {
		t.Errorf("reduced_ms = %v, want > 0", out["reduced_ms"])
	}

	result, _ = env.h.HandleWarm(ctx, makeRequest(map[string]any{"index": 5}))
	assertErrorCode(t, result, string(errors.ErrIndexOutOfRange))

	env.clk.Advance(time.Duration(env.cfg.HatchMaxMs) * time.Millisecond)

	result, _ = env.h.HandleHatch(ctx, makeRequest(map[string]any{"egg_id": eggID}))
	out = parseOutput(t, result)
	if out["eggs"] != float64(0) || out["egg_id"] != eggID {
		t.Errorf("hatch = %v", out)
	}
}

func TestHandleShop(t *testing.T) {
	env := testSetup(t, nil)
	ctx := context.Background()

	result, _ := env.h.HandleBuyCapsule(ctx, makeRequest(nil))
	assertErrorCode(t, result, string(errors.ErrInsufficientResource))

	if err := env.gs.IncrementTokens(env.cfg.RareVariantCost); err != nil {
		t.Fatalf("failed to credit tokens: %v", err)
	}

	result, _ = env.h.HandleBuyRare(ctx, makeRequest(nil))
	out := parseOutput(t, result)
	c := out["creature"].(map[string]any)
	if c["is_rare_variant"] != true {
		t.Errorf("creature = %v, want a rare variant", c)
	}
	if out["tokens"] != float64(0) {
		t.Errorf("tokens = %v, want 0", out["tokens"])
	}
}

func TestHandleReport(t *testing.T) {
	env := testSetup(t, nil)
	ctx := context.Background()
	env.addEevee(t)

	result, _ := env.h.HandleReport(ctx, makeRequest(nil))
	out := parseOutput(t, result)
	md := out["markdown"].(string)
	if !strings.HasPrefix(md, "# Critter collection") || !strings.Contains(md, "Eevee") {
		t.Errorf("markdown = %q", md)
	}

	result, _ = env.h.HandleReport(ctx, makeRequest(map[string]any{"section": "eggs"}))
	out = parseOutput(t, result)
	if md := out["markdown"].(string); !strings.HasPrefix(md, "## Eggs") {
		t.Errorf("section = %q", md)
	}

	result, _ = env.h.HandleReport(ctx, makeRequest(map[string]any{"section": "nope"}))
	assertErrorCode(t, result, string(errors.ErrNotFound))
}

func TestHandleExportImport(t *testing.T) {
	env := testSetup(t, nil)
	ctx := context.Background()
	env.addEevee(t)

	exportPath := filepath.Join(env.dir, "game.json")
	result, err := env.h.HandleExport(ctx, makeRequest(map[string]any{"path": exportPath}))
	if err != nil {
		t.Fatalf("export handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("export failed: %v", extractErrorMessage(result))
	}
	if _, err := os.Stat(exportPath); os.IsNotExist(err) {
		t.Fatal("export file not created")
	}

	env2 := testSetup(t, nil)
	env2.cfg.AllowedPaths = []string{env.dir}
	result, err = env2.h.HandleImport(ctx, makeRequest(map[string]any{"path": exportPath, "mode": "replace"}))
	if err != nil {
		t.Fatalf("import handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if out["creatures"] != float64(1) {
		t.Errorf("imported %v creatures, want 1", out["creatures"])
	}
	if len(env2.gs.Creatures()) != 1 {
		t.Error("imported creature not found")
	}

	result, _ = env2.h.HandleImport(ctx, makeRequest(map[string]any{"path": exportPath, "mode": "upsert"}))
	assertErrorCode(t, result, string(errors.ErrInvalidInput))
}

// --- errorResult ---

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrappedErr := fmt.Errorf("instance_ids[1]: %w", errors.NewNotFound("creature", "abc"))

	errObj := errorObject(t, errorResult(wrappedErr))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if msg := errObj["message"].(string); !strings.Contains(msg, "instance_ids[1]") {
		t.Errorf("message should contain wrapper context, got: %s", msg)
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewNotFound("creature", "abc")))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
	if errObj["retryable"] != false {
		t.Errorf("retryable=%v, want false", errObj["retryable"])
	}
}

func TestErrorResult_RetryableCatalogFailure(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewCatalogUnavailable("species/1", fmt.Errorf("connection refused"))))
	if errObj["retryable"] != true {
		t.Errorf("retryable=%v, want true", errObj["retryable"])
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != string(errors.ErrInternal) || errObj["message"] != "an internal error occurred" {
		t.Errorf("error = %v", errObj)
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload["error"].(map[string]any)
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error %s, got success: %s", expectedCode, extractErrorMessage(result))
		return
	}
	if code, _ := errorObject(t, result)["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
