package web

import (
	"errors"
	"net/http"

	turmaStore "crm/internal/adapters/storage/turma"
	"crm/internal/application/listutil"
	"crm/internal/application/orchestrators"
	"crm/internal/application/projections"
)

// maxUpcomingDays caps the look-ahead of the upcoming modules endpoint.
const maxUpcomingDays = 365

type classRequest struct {
	Course       string `json:"course"`
	City         string `json:"city"`
	StudioID     string `json:"studio_id"`
	InstructorID string `json:"instructor_id"`
	Mod1Code     string `json:"mod1_code"`
	Mod1Date     string `json:"mod1_date"` // YYYY-MM-DD
	Mod2Code     string `json:"mod2_code"`
	Mod2Date     string `json:"mod2_date"`
	Capacity     int    `json:"capacity"`
	Status       string `json:"status"`
}

func (c classRequest) input() (orchestrators.ClassInput, error) {
	mod1, err := listutil.ParseDate(c.Mod1Date)
	if err != nil {
		return orchestrators.ClassInput{}, errors.New("mod1_date must be YYYY-MM-DD")
	}
	mod2, err := listutil.ParseDate(c.Mod2Date)
	if err != nil {
		return orchestrators.ClassInput{}, errors.New("mod2_date must be YYYY-MM-DD")
	}
	return orchestrators.ClassInput{
		Course:       c.Course,
		City:         c.City,
		StudioID:     c.StudioID,
		InstructorID: c.InstructorID,
		Mod1Code:     c.Mod1Code,
		Mod1Date:     mod1,
		Mod2Code:     c.Mod2Code,
		Mod2Date:     mod2,
		Capacity:     c.Capacity,
		Status:       c.Status,
	}, nil
}

func decodeClass(w http.ResponseWriter, r *http.Request) (orchestrators.ClassInput, bool) {
	var req classRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return orchestrators.ClassInput{}, false
	}
	in, err := req.input()
	if err != nil {
		badRequest(w, err.Error())
		return orchestrators.ClassInput{}, false
	}
	return in, true
}

// handleListClasses handles GET /api/classes.
func handleListClasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := listutil.Parse(q, turmaStore.SortColumns,
		projections.FilterCity, projections.FilterStatus, projections.FilterStudio, projections.FilterFrom)
	result, err := projections.QueryGetClassList(r.Context(), projections.GetClassListQuery{
		Params:       params,
		InstructorID: q.Get("instructor"),
	}, projections.GetClassListDeps{ClassStore: stores.ClassStore, DealStore: stores.DealStore})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCreateClass handles POST /api/classes.
func handleCreateClass(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeClass(w, r)
	if !ok {
		return
	}
	c, err := orchestrators.ExecuteCreateClass(r.Context(), in, classDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleUpdateClass handles PUT /api/classes/{id}.
func handleUpdateClass(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeClass(w, r)
	if !ok {
		return
	}
	c, err := orchestrators.ExecuteUpdateClass(r.Context(), r.PathValue("id"), in, classDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleCancelClass handles POST /api/classes/{id}/cancel.
func handleCancelClass(w http.ResponseWriter, r *http.Request) {
	sess, _ := currentActor(r)
	c, err := orchestrators.ExecuteCancelClass(r.Context(), r.PathValue("id"), sess.Actor(), classDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleClassRoster handles GET /api/classes/{id}: the class with the deals
// enrolled in each module.
func handleClassRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := projections.QueryGetClassRoster(r.Context(), r.PathValue("id"),
		projections.GetClassRosterDeps{ClassStore: stores.ClassStore, DealStore: stores.DealStore})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// handleUpcomingModules handles GET /api/modules/upcoming?days=&studio=&instructor=.
func handleUpcomingModules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	modules, err := projections.QueryGetUpcomingModules(r.Context(), projections.GetUpcomingModulesQuery{
		Days:         listutil.ParseDays(q.Get("days"), projections.DefaultUpcomingDays, maxUpcomingDays),
		StudioID:     q.Get("studio"),
		InstructorID: q.Get("instructor"),
	}, projections.GetUpcomingModulesDeps{ClassStore: stores.ClassStore, DealStore: stores.DealStore, Now: timeNow})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modules)
}
