package web

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/ops"
	"github.com/hpungsan/critter/internal/report"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handlers contains HTTP route handlers for the web UI and JSON API.
type Handlers struct {
	presenter *ops.Presenter
	renderer  *Renderer
}

// HandleCollection handles GET / with the rendered collection report.
func (h *Handlers) HandleCollection(w http.ResponseWriter, r *http.Request) {
	rep, err := report.Build(r.Context(), h.presenter)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.renderer.renderPage(w, "collection", CollectionPageData{
		PageData: PageData{
			Title:   "Collection",
			Version: h.renderer.version,
		},
		Report:       rep,
		RenderedHTML: h.renderer.renderMarkdown(rep.Markdown()),
	})
}

// HandleReport handles GET /api/report with the raw markdown report.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := report.Build(r.Context(), h.presenter)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	md := rep.Markdown()
	if section := r.URL.Query().Get("section"); section != "" {
		var ok bool
		if md, ok = report.Extract(md, section); !ok {
			h.renderer.renderError(w, r, errors.NewNotFound("section", section))
			return
		}
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, md)
}

// HandleStatus handles GET /api/status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	out, err := h.presenter.Status(r.Context())
	h.respond(w, r, out, err)
}

// HandleListCreatures handles GET /api/creatures.
func (h *Handlers) HandleListCreatures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.presenter.ListCreatures(r.Context(), ops.ListCreaturesInput{
		SpeciesID:  parseIntParam(r, "species", 0),
		Type:       q.Get("type"),
		UnseenOnly: parseBoolParam(r, "unseen"),
		RareOnly:   parseBoolParam(r, "rare"),
		Limit:      parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:     parseIntParam(r, "offset", 0),
	})
	h.respond(w, r, out, err)
}

// HandleMarkSeen handles POST /api/creatures/{id}/seen.
func (h *Handlers) HandleMarkSeen(w http.ResponseWriter, r *http.Request) {
	out, err := h.presenter.MarkSeen(r.Context(), ops.MarkSeenInput{InstanceID: r.PathValue("id")})
	h.respond(w, r, out, err)
}

type photoRequest struct {
	ImageRef string `json:"image_ref"`
}

// HandleCapturePhoto handles POST /api/creatures/{id}/photos.
func (h *Handlers) HandleCapturePhoto(w http.ResponseWriter, r *http.Request) {
	var req photoRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	out, err := h.presenter.CapturePhoto(r.Context(), ops.CapturePhotoInput{
		InstanceID: r.PathValue("id"),
		ImageRef:   req.ImageRef,
	})
	h.respond(w, r, out, err)
}

type selectionRequest struct {
	InstanceIDs []string `json:"instance_ids"`
}

// HandleEvolve handles POST /api/evolve.
func (h *Handlers) HandleEvolve(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	out, err := h.presenter.RequestEvolution(r.Context(), ops.RequestEvolutionInput{InstanceIDs: req.InstanceIDs})
	h.respond(w, r, out, err)
}

// HandleBreed handles POST /api/breed.
func (h *Handlers) HandleBreed(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	out, err := h.presenter.RequestBreeding(r.Context(), ops.RequestBreedingInput{InstanceIDs: req.InstanceIDs})
	h.respond(w, r, out, err)
}

// HandleCooldowns handles GET /api/cooldowns. Repeated id parameters select
// creatures; without any every active cooldown is listed.
func (h *Handlers) HandleCooldowns(w http.ResponseWriter, r *http.Request) {
	out, err := h.presenter.BreedingStatus(r.Context(), ops.BreedingStatusInput{InstanceIDs: r.URL.Query()["id"]})
	h.respond(w, r, out, err)
}

// HandleRecycle handles POST /api/recycle.
func (h *Handlers) HandleRecycle(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	out, err := h.presenter.RecycleCreatures(r.Context(), ops.RecycleCreaturesInput{InstanceIDs: req.InstanceIDs})
	h.respond(w, r, out, err)
}

// HandleListEggs handles GET /api/eggs.
func (h *Handlers) HandleListEggs(w http.ResponseWriter, r *http.Request) {
	out, err := h.presenter.ListEggs(r.Context())
	h.respond(w, r, out, err)
}

// HandleHatch handles POST /api/eggs/{ref}/hatch. ref is an index or an egg ID.
func (h *Handlers) HandleHatch(w http.ResponseWriter, r *http.Request) {
	index, id := eggRef(r.PathValue("ref"))
	out, err := h.presenter.HatchEgg(r.Context(), ops.HatchEggInput{Index: index, EggID: id})
	h.respond(w, r, out, err)
}

// HandleWarm handles POST /api/eggs/{ref}/warm.
func (h *Handlers) HandleWarm(w http.ResponseWriter, r *http.Request) {
	index, id := eggRef(r.PathValue("ref"))
	out, err := h.presenter.WarmEgg(r.Context(), ops.WarmEggInput{Index: index, EggID: id})
	h.respond(w, r, out, err)
}

// HandleOpenCapsule handles POST /api/capsules/open.
func (h *Handlers) HandleOpenCapsule(w http.ResponseWriter, r *http.Request) {
	out, err := h.presenter.OpenCapsule(r.Context(), ops.OpenCapsuleInput{})
	h.respond(w, r, out, err)
}

// HandleBuyCapsule handles POST /api/shop/capsule.
func (h *Handlers) HandleBuyCapsule(w http.ResponseWriter, r *http.Request) {
	out, err := h.presenter.BuyCapsule(r.Context(), ops.BuyCapsuleInput{})
	h.respond(w, r, out, err)
}

// HandleBuyRare handles POST /api/shop/rare.
func (h *Handlers) HandleBuyRare(w http.ResponseWriter, r *http.Request) {
	out, err := h.presenter.BuyRareVariant(r.Context(), ops.BuyRareVariantInput{})
	h.respond(w, r, out, err)
}

type exportRequest struct {
	Path string `json:"path"`
}

// HandleExport handles POST /api/export.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	out, err := h.presenter.Export(r.Context(), ops.ExportInput{Path: req.Path})
	h.respond(w, r, out, err)
}

type importRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
}

// HandleImport handles POST /api/import.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	out, err := h.presenter.Import(r.Context(), ops.ImportInput{Path: req.Path, Mode: ops.ImportMode(req.Mode)})
	h.respond(w, r, out, err)
}

// respond writes out as JSON, or the error envelope when err is set.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, out any, err error) {
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// decodeJSON reads an optional JSON body into v. Unknown fields are rejected.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.NewInvalidInput("invalid JSON body: " + err.Error())
	}
	return nil
}

// eggRef reads a path segment as an egg index, or as an egg ID when it is
// not a number.
func eggRef(ref string) (int, string) {
	ref = strings.TrimSpace(ref)
	if i, err := strconv.Atoi(ref); err == nil {
		return i, ""
	}
	return 0, ref
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
