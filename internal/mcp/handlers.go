package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/ops"
	"github.com/hpungsan/critter/internal/report"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	presenter *ops.Presenter
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(p *ops.Presenter) *Handlers {
	return &Handlers{presenter: p}
}

// Request types for each tool

// ReportRequest represents the arguments for game_report.
type ReportRequest struct {
	Section string `json:"section,omitempty"`
}

// ExportRequest represents the arguments for game_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for game_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// ListCreaturesRequest represents the arguments for creature_list.
type ListCreaturesRequest struct {
	SpeciesID  int    `json:"species_id,omitempty"`
	Type       string `json:"type,omitempty"`
	UnseenOnly bool   `json:"unseen_only,omitempty"`
	RareOnly   bool   `json:"rare_only,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// SelectionRequest represents the arguments for tools acting on a set of
// creatures (creature_evolve, creature_breed, creature_cooldowns, creature_recycle).
type SelectionRequest struct {
	InstanceIDs []string `json:"instance_ids"`
}

// CreatureRequest represents the arguments for creature_seen.
type CreatureRequest struct {
	InstanceID string `json:"instance_id"`
}

// EggRequest represents the arguments for egg_hatch and egg_warm.
type EggRequest struct {
	Index int    `json:"index,omitempty"`
	EggID string `json:"egg_id,omitempty"`
}

// PhotoRequest represents the arguments for photo_capture.
type PhotoRequest struct {
	InstanceID string `json:"instance_id"`
	ImageRef   string `json:"image_ref"`
}

// ReportOutput is the game_report result.
type ReportOutput struct {
	Markdown string `json:"markdown"`
}

// HandleStatus handles the game_status tool.
func (h *Handlers) HandleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.presenter.Status(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleReport handles the game_report tool.
func (h *Handlers) HandleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ReportRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	rep, err := report.Build(ctx, h.presenter)
	if err != nil {
		return errorResult(err), nil
	}
	md := rep.Markdown()
	if req.Section != "" {
		var ok bool
		if md, ok = report.Extract(md, req.Section); !ok {
			return errorResult(errors.NewNotFound("section", req.Section)), nil
		}
	}
	return successResult(ReportOutput{Markdown: md})
}

// HandleExport handles the game_export tool.
func (h *Handlers) HandleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ExportRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.Export(ctx, ops.ExportInput{Path: req.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleImport handles the game_import tool.
func (h *Handlers) HandleImport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ImportRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.Import(ctx, ops.ImportInput{Path: req.Path, Mode: ops.ImportMode(req.Mode)})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleListCreatures handles the creature_list tool.
func (h *Handlers) HandleListCreatures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[ListCreaturesRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	limit := req.Limit
	if limit == 0 {
		limit = ops.DefaultListLimit
	}
	out, err := h.presenter.ListCreatures(ctx, ops.ListCreaturesInput{
		SpeciesID:  req.SpeciesID,
		Type:       req.Type,
		UnseenOnly: req.UnseenOnly,
		RareOnly:   req.RareOnly,
		Limit:      limit,
		Offset:     req.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleEvolve handles the creature_evolve tool.
func (h *Handlers) HandleEvolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[SelectionRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.RequestEvolution(ctx, ops.RequestEvolutionInput{InstanceIDs: req.InstanceIDs})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleBreed handles the creature_breed tool.
func (h *Handlers) HandleBreed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[SelectionRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.RequestBreeding(ctx, ops.RequestBreedingInput{InstanceIDs: req.InstanceIDs})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleCooldowns handles the creature_cooldowns tool.
func (h *Handlers) HandleCooldowns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[SelectionRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.BreedingStatus(ctx, ops.BreedingStatusInput{InstanceIDs: req.InstanceIDs})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleRecycle handles the creature_recycle tool.
func (h *Handlers) HandleRecycle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[SelectionRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.RecycleCreatures(ctx, ops.RecycleCreaturesInput{InstanceIDs: req.InstanceIDs})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleSeen handles the creature_seen tool.
func (h *Handlers) HandleSeen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[CreatureRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.MarkSeen(ctx, ops.MarkSeenInput{InstanceID: req.InstanceID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleListEggs handles the egg_list tool.
func (h *Handlers) HandleListEggs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.presenter.ListEggs(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleHatch handles the egg_hatch tool.
func (h *Handlers) HandleHatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[EggRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.HatchEgg(ctx, ops.HatchEggInput{Index: req.Index, EggID: req.EggID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleWarm handles the egg_warm tool.
func (h *Handlers) HandleWarm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[EggRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.WarmEgg(ctx, ops.WarmEggInput{Index: req.Index, EggID: req.EggID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleOpenCapsule handles the capsule_open tool.
func (h *Handlers) HandleOpenCapsule(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.presenter.OpenCapsule(ctx, ops.OpenCapsuleInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleBuyCapsule handles the shop_buy_capsule tool.
func (h *Handlers) HandleBuyCapsule(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.presenter.BuyCapsule(ctx, ops.BuyCapsuleInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleBuyRare handles the shop_buy_rare tool.
func (h *Handlers) HandleBuyRare(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := h.presenter.BuyRareVariant(ctx, ops.BuyRareVariantInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandlePhoto handles the photo_capture tool.
func (h *Handlers) HandlePhoto(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := decode[PhotoRequest](request)
	if err != nil {
		return errorResult(errors.NewInvalidInput(err.Error())), nil
	}

	out, err := h.presenter.CapturePhoto(ctx, ops.CapturePhotoInput{InstanceID: req.InstanceID, ImageRef: req.ImageRef})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// errorResult creates an MCP error result from an error.
// Wrapped GameErrors keep their code; the wrapper context stays in the message.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if gameErr, ok := errors.As(err); ok {
		msg := gameErr.Message
		if err != error(gameErr) {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":      gameErr.Code,
			"message":   msg,
			"status":    gameErr.Status,
			"retryable": gameErr.Retryable(),
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if gameErr.Code != errors.ErrInternal && gameErr.Details != nil {
			errorObj["details"] = gameErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
