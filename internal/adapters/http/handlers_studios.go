package web

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"crm/internal/adapters/export"
	"crm/internal/adapters/http/middleware"
	studioStore "crm/internal/adapters/storage/studio"
	"crm/internal/application/listutil"
	"crm/internal/application/orchestrators"
	"crm/internal/application/projections"
	"crm/internal/domain/studio"
)

type studioRequest struct {
	Name             string  `json:"name"`
	PartnerAccountID string  `json:"partner_account_id"`
	City             string  `json:"city"`
	Address          string  `json:"address"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	RadiusKm         float64 `json:"radius_km"`
	Seats            int     `json:"seats"`
	Force            bool    `json:"force"` // honoured for admins only
}

func (s studioRequest) input() orchestrators.StudioInput {
	return orchestrators.StudioInput{
		Name:             s.Name,
		PartnerAccountID: s.PartnerAccountID,
		City:             s.City,
		Address:          s.Address,
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		RadiusKm:         s.RadiusKm,
		Seats:            s.Seats,
	}
}

func studioCommand(r *http.Request, force bool) orchestrators.StudioCommand {
	sess, _ := currentActor(r)
	return orchestrators.StudioCommand{Actor: sess.Actor(), IP: middleware.ClientIP(r), Force: force}
}

// handleListStudios handles GET /api/studios. Partners only see their own.
func handleListStudios(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	params := listutil.Parse(r.URL.Query(), studioStore.SortColumns, projections.FilterCity, projections.FilterStatus)
	result, err := projections.QueryGetStudioList(r.Context(), projections.GetStudioListQuery{Params: params, Viewer: sess.Actor()},
		projections.GetStudioListDeps{StudioStore: stores.StudioStore})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRegisterStudio handles POST /api/studios. An overlap with an active
// studio answers 409 with the conflicting studios.
func handleRegisterStudio(w http.ResponseWriter, r *http.Request) {
	var req studioRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	s, err := orchestrators.ExecuteRegisterStudio(r.Context(), req.input(), studioCommand(r, req.Force), studioDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func handleUpdateStudio(w http.ResponseWriter, r *http.Request) {
	var req studioRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	s, err := orchestrators.ExecuteUpdateStudio(r.Context(), r.PathValue("id"), req.input(), studioCommand(r, req.Force), studioDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type forceRequest struct {
	Force bool `json:"force"`
}

// decodeForce reads an optional {"force": true} body.
func decodeForce(r *http.Request) (bool, error) {
	if r.ContentLength == 0 {
		return false, nil
	}
	var req forceRequest
	if err := strictDecode(r, &req); err != nil {
		return false, err
	}
	return req.Force, nil
}

func handleActivateStudio(w http.ResponseWriter, r *http.Request) {
	force, err := decodeForce(r)
	if err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	s, err := orchestrators.ExecuteActivateStudio(r.Context(), r.PathValue("id"), studioCommand(r, force), studioDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func handleSuspendStudio(w http.ResponseWriter, r *http.Request) {
	s, err := orchestrators.ExecuteSuspendStudio(r.Context(), r.PathValue("id"), studioCommand(r, false), studioDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type radiusRequest struct {
	ExcludeID string  `json:"exclude_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

// handleCheckRadius handles POST /api/studios/radius-check: a dry run of the
// exclusivity rule for a prospective location.
func handleCheckRadius(w http.ResponseWriter, r *http.Request) {
	var req radiusRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	conflicts, err := orchestrators.ExecuteCheckRadius(r.Context(), orchestrators.CheckRadiusInput{
		ExcludeID: req.ExcludeID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		RadiusKm:  req.RadiusKm,
	}, studioDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if conflicts == nil {
		conflicts = []studio.Conflict{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": len(conflicts) == 0, "conflicts": conflicts})
}

// handleStudioInventory handles GET /api/studios/{id}: the studio, its items
// and those below their minimum.
func handleStudioInventory(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	inv, err := projections.QueryGetStudioInventory(r.Context(), r.PathValue("id"), sess.Actor(),
		projections.GetStudioInventoryDeps{StudioStore: stores.StudioStore})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// handleStudioSchedule handles GET /api/studios/{id}/schedule?from=&to=.
func handleStudioSchedule(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	q := r.URL.Query()
	from, err := listutil.ParseDate(q.Get("from"))
	if err != nil {
		badRequest(w, "from must be YYYY-MM-DD")
		return
	}
	to, err := listutil.ParseDate(q.Get("to"))
	if err != nil {
		badRequest(w, "to must be YYYY-MM-DD")
		return
	}
	schedule, err := projections.QueryGetStudioSchedule(r.Context(), projections.GetStudioScheduleQuery{
		StudioID: r.PathValue("id"),
		From:     from,
		To:       to,
		Viewer:   sess.Actor(),
	}, projections.GetStudioScheduleDeps{
		StudioStore: stores.StudioStore,
		ClassStore:  stores.ClassStore,
		DealStore:   stores.DealStore,
		Now:         timeNow,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

type itemRequest struct {
	ID          string `json:"id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
}

// handleUpsertItem handles POST /api/studios/{id}/items. An id updates the
// existing item; otherwise a new one is created.
func handleUpsertItem(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req itemRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	item, err := orchestrators.ExecuteUpsertItem(r.Context(), r.PathValue("id"), orchestrators.ItemInput{
		ID:          req.ID,
		SKU:         req.SKU,
		Name:        req.Name,
		Quantity:    req.Quantity,
		MinQuantity: req.MinQuantity,
	}, sess.Actor(), studioDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, item)
}

type adjustRequest struct {
	Delta int `json:"delta"`
}

// handleAdjustItem handles POST /api/items/{id}/adjust with a signed delta.
func handleAdjustItem(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req adjustRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	item, err := orchestrators.ExecuteAdjustItem(r.Context(), r.PathValue("id"), req.Delta, sess.Actor(), studioDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	if err := orchestrators.ExecuteDeleteItem(r.Context(), r.PathValue("id"), sess.Actor(), studioDeps()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportInventory streams the inventory of every visible studio as XLSX.
// Partners receive only the studios they own.
func handleExportInventory(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	filter := studioStore.ListFilter{Sort: "name"}
	if !sess.IsAdmin() {
		filter.PartnerID = sess.AccountID
	}
	studios, err := stores.StudioStore.List(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}
	var items []studio.Item
	for _, s := range studios {
		list, err := stores.StudioStore.ListItems(r.Context(), s.ID)
		if err != nil {
			internalError(w, err)
			return
		}
		items = append(items, list...)
	}

	var buf bytes.Buffer
	if err := export.WriteInventory(&buf, studios, items); err != nil {
		internalError(w, err)
		return
	}
	slog.Info("studio_event", "event", "inventory_exported", "studios", len(studios), "items", len(items))
	writeXLSX(w, fmt.Sprintf("inventory-%s.xlsx", timeNow().Format("20060102")), buf.Bytes())
}
