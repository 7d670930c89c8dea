package web

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"crm/internal/adapters/export"
	dealStore "crm/internal/adapters/storage/deal"
	"crm/internal/application/listutil"
	"crm/internal/application/orchestrators"
	"crm/internal/application/projections"
	"crm/internal/domain/deal"
	"crm/internal/domain/money"
)

// maxImportBytes caps deal import uploads.
const maxImportBytes = 10 << 20

type dealRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	City          string `json:"city"`
	Source        string `json:"source"`
	Stage         string `json:"stage"`
	ValueCents    int64  `json:"value_cents"`
	ClassCodeMod1 string `json:"class_code_mod1"`
	ClassCodeMod2 string `json:"class_code_mod2"`
	OwnerID       string `json:"owner_id"`
	Notes         string `json:"notes"`
}

// fillForm reads the deal form. Value is free text such as "R$ 1.500,00".
func (d *dealRequest) fillForm(form url.Values) error {
	d.Name = form.Get("Name")
	d.Email = form.Get("Email")
	d.Phone = form.Get("Phone")
	d.City = form.Get("City")
	d.Source = form.Get("Source")
	d.Stage = form.Get("Stage")
	d.ClassCodeMod1 = form.Get("ClassCodeMod1")
	d.ClassCodeMod2 = form.Get("ClassCodeMod2")
	d.OwnerID = form.Get("OwnerID")
	d.Notes = form.Get("Notes")
	if v := strings.TrimSpace(form.Get("Value")); v != "" {
		cents, err := money.ParseCents(v)
		if err != nil {
			return err
		}
		d.ValueCents = cents
	}
	return nil
}

func (d dealRequest) input(ownerFallback string) orchestrators.DealInput {
	owner := d.OwnerID
	if owner == "" {
		owner = ownerFallback
	}
	return orchestrators.DealInput{
		Name:          d.Name,
		Email:         d.Email,
		Phone:         d.Phone,
		City:          d.City,
		Source:        d.Source,
		Stage:         d.Stage,
		ValueCents:    d.ValueCents,
		ClassCodeMod1: d.ClassCodeMod1,
		ClassCodeMod2: d.ClassCodeMod2,
		OwnerID:       owner,
		Notes:         d.Notes,
	}
}

func dealListParams(r *http.Request) listutil.Params {
	return listutil.Parse(r.URL.Query(), dealStore.SortColumns,
		projections.FilterStage, projections.FilterClassCode, projections.FilterOwner, projections.FilterCity)
}

// handleDealsPage renders the pipeline table (GET /deals).
func handleDealsPage(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryGetDealList(r.Context(), projections.GetDealListQuery{Params: dealListParams(r)},
		projections.GetDealListDeps{DealStore: stores.DealStore})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "deals.html", map[string]any{
		"Deals":  result.Deals,
		"Page":   result.Page,
		"Query":  r.URL.Query(),
		"Stages": deal.Stages,
	})
}

// handleListDeals handles GET /api/deals.
func handleListDeals(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryGetDealList(r.Context(), projections.GetDealListQuery{Params: dealListParams(r)},
		projections.GetDealListDeps{DealStore: stores.DealStore})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGetDeal handles GET /api/deals/{id}.
func handleGetDeal(w http.ResponseWriter, r *http.Request) {
	d, err := stores.DealStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleCreateDeal handles POST /deals (form) and POST /api/deals (JSON).
func handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req dealRequest
	if err := decodeInput(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	d, err := orchestrators.ExecuteCreateDeal(r.Context(), req.input(sess.AccountID), dealDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	finish(w, r, http.StatusCreated, "/deals", d)
}

// handleUpdateDeal handles PUT /api/deals/{id}. The stage is left unchanged.
func handleUpdateDeal(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	var req dealRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	d, err := orchestrators.ExecuteUpdateDeal(r.Context(), r.PathValue("id"), req.input(sess.AccountID), dealDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type stageRequest struct {
	Stage string `json:"stage"`
}

func (s *stageRequest) fillForm(form url.Values) error {
	s.Stage = form.Get("Stage")
	return nil
}

// handleChangeDealStage moves a deal through the pipeline.
func handleChangeDealStage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := decodeInput(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	d, err := orchestrators.ExecuteChangeDealStage(r.Context(), r.PathValue("id"), req.Stage, dealDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	finish(w, r, http.StatusOK, "/deals", d)
}

// handleDeleteDeal handles DELETE /api/deals/{id}.
func handleDeleteDeal(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	if err := orchestrators.ExecuteDeleteDeal(r.Context(), r.PathValue("id"), sess.Actor(), dealDeps()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportDeals handles POST /api/deals/import: a multipart "file"
// field holding a CSV or XLSX sheet. dry_run=1 validates without writing;
// update=1 updates deals whose email already exists.
func handleImportDeals(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		badRequest(w, "expected a multipart upload under 10 MB")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing file field")
		return
	}
	defer file.Close()

	rows, err := export.ReadRows(file, header.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := orchestrators.ExecuteImportDeals(r.Context(), orchestrators.ImportDealsInput{
		Rows:       rows,
		Actor:      sess.Actor(),
		DryRun:     formBool(r, "dry_run"),
		UpdateMode: formBool(r, "update"),
	}, orchestrators.ImportDealsDeps{
		DealStore:  stores.DealStore,
		ClassStore: stores.ClassStore,
		AuditStore: stores.AuditStore,
		Cache:      settings.Cache,
		Now:        timeNow,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleExportDeals streams every deal matching the list filters as XLSX.
func handleExportDeals(w http.ResponseWriter, r *http.Request) {
	p := dealListParams(r)
	deals, err := stores.DealStore.List(r.Context(), dealStore.ListFilter{
		Stage:     listutil.OneOf(p.Filters[projections.FilterStage], deal.Stages),
		ClassCode: deal.NormalizeCode(p.Filters[projections.FilterClassCode]),
		OwnerID:   p.Filters[projections.FilterOwner],
		City:      p.Filters[projections.FilterCity],
		Search:    p.Search,
		Sort:      p.Sort,
		Dir:       p.Dir,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteDeals(&buf, deals); err != nil {
		internalError(w, err)
		return
	}
	slog.Info("deal_event", "event", "exported", "rows", len(deals))
	writeXLSX(w, fmt.Sprintf("deals-%s.xlsx", timeNow().Format("20060102")), buf.Bytes())
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// writeDecodeError answers a body that could not be read. Form values that
// fail domain parsing (a bad amount) are reported like validation errors.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusBadRequest {
		writeError(w, r, err)
		return
	}
	badRequest(w, "invalid request body")
}

func formBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.FormValue(key))
	return v
}
