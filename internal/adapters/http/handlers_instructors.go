package web

import (
	"net/http"

	instructorStore "crm/internal/adapters/storage/instructor"
	"crm/internal/application/listutil"
	"crm/internal/application/orchestrators"
	"crm/internal/application/projections"
)

type instructorRequest struct {
	AccountID  string `json:"account_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	SalaryText string `json:"salary_text"` // free text, e.g. "R$ 4.200,00"
	HiredAt    string `json:"hired_at"`    // YYYY-MM-DD
}

func decodeInstructor(w http.ResponseWriter, r *http.Request) (orchestrators.InstructorInput, bool) {
	var req instructorRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return orchestrators.InstructorInput{}, false
	}
	hired, err := listutil.ParseDate(req.HiredAt)
	if err != nil {
		badRequest(w, "hired_at must be YYYY-MM-DD")
		return orchestrators.InstructorInput{}, false
	}
	return orchestrators.InstructorInput{
		AccountID:  req.AccountID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		City:       req.City,
		SalaryText: req.SalaryText,
		HiredAt:    hired,
	}, true
}

// handleListInstructors handles GET /api/instructors with tenure and salary stats.
func handleListInstructors(w http.ResponseWriter, r *http.Request) {
	params := listutil.Parse(r.URL.Query(), instructorStore.SortColumns, projections.FilterCity, projections.FilterStatus)
	result, err := projections.QueryGetInstructorList(r.Context(), projections.GetInstructorListQuery{Params: params},
		projections.GetInstructorListDeps{InstructorStore: stores.InstructorStore, Now: timeNow})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func handleGetInstructor(w http.ResponseWriter, r *http.Request) {
	in, err := stores.InstructorStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func handleCreateInstructor(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInstructor(w, r)
	if !ok {
		return
	}
	created, err := orchestrators.ExecuteCreateInstructor(r.Context(), in, instructorDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func handleUpdateInstructor(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInstructor(w, r)
	if !ok {
		return
	}
	updated, err := orchestrators.ExecuteUpdateInstructor(r.Context(), r.PathValue("id"), in, instructorDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeactivateInstructor handles POST /api/instructors/{id}/deactivate.
// Deactivated instructors keep their history but cannot take new classes.
func handleDeactivateInstructor(w http.ResponseWriter, r *http.Request) {
	updated, err := orchestrators.ExecuteDeactivateInstructor(r.Context(), r.PathValue("id"), instructorDeps())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
