package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"crm/internal/domain/audit"
	"crm/internal/domain/deal"
	"crm/internal/domain/money"

	"github.com/google/uuid"
)

// ImportDealsInput carries the parsed rows and import options.
// PRE: Rows[0] is the header row; Actor is an admin.
// POST: Returns aggregate counts and per-row errors; writes are skipped when DryRun=true.
// INVARIANT: Existing deals are never deleted; IDs and stages are preserved on
// update, and only the fields a row fills in are overwritten.
type ImportDealsInput struct {
	Rows       [][]string
	Actor      audit.Actor
	DryRun     bool
	UpdateMode bool
}

// ImportDealsResult holds aggregate counts and per-row errors from an import run.
type ImportDealsResult struct {
	Total   int                  `json:"total"`
	Created int                  `json:"created"`
	Updated int                  `json:"updated"`
	Skipped int                  `json:"skipped"`
	Errors  []ImportDealRowError `json:"errors"`
	DryRun  bool                 `json:"dry_run"`
	Unknown []string             `json:"unknown_columns"`
}

// ImportDealRowError describes a validation or processing error for a single row.
type ImportDealRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportDealsDeps holds external dependencies for the import orchestrator.
type ImportDealsDeps struct {
	DealStore  DealStore
	ClassStore ClassCodeLookup
	AuditStore AuditStore
	Cache      CacheInvalidator
	Now        func() time.Time
}

// ImportValidationError is returned when the file structure is invalid.
type ImportValidationError struct {
	Message string
}

func (e *ImportValidationError) Error() string {
	return e.Message
}

// importColumns maps normalised header names to canonical column keys.
var importColumns = map[string]string{
	"NAME":          "NAME",
	"EMAIL":         "EMAIL",
	"PHONE":         "PHONE",
	"CITY":          "CITY",
	"SOURCE":        "SOURCE",
	"STAGE":         "STAGE",
	"VALUE":         "VALUE",
	"MOD1CODE":      "MOD1",
	"CLASSCODEMOD1": "MOD1",
	"MOD1":          "MOD1",
	"MOD2CODE":      "MOD2",
	"CLASSCODEMOD2": "MOD2",
	"MOD2":          "MOD2",
	"NOTES":         "NOTES",
	"OWNER":         "OWNER",
	"CREATED":       "CREATED",
}

// applySupplied copies onto d only the fields the row filled in. Missing
// columns and blank cells keep the stored value; the stage never changes.
func (in DealInput) applySupplied(d *deal.Deal, supplied func(col string) bool) {
	fields := []struct {
		col string
		src string
		dst *string
	}{
		{"NAME", in.Name, &d.Name},
		{"PHONE", in.Phone, &d.Phone},
		{"CITY", in.City, &d.City},
		{"SOURCE", in.Source, &d.Source},
		{"MOD1", in.ClassCodeMod1, &d.ClassCodeMod1},
		{"MOD2", in.ClassCodeMod2, &d.ClassCodeMod2},
		{"OWNER", in.OwnerID, &d.OwnerID},
		{"NOTES", in.Notes, &d.Notes},
	}
	for _, f := range fields {
		if supplied(f.col) {
			*f.dst = f.src
		}
	}
	if supplied("VALUE") {
		d.ValueCents = in.ValueCents
	}
}

func normalizeHeader(h string) string {
	h = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// ExecuteImportDeals creates or updates deals from spreadsheet rows. Rows with
// an email that matches an existing deal update it when UpdateMode is set and
// are skipped otherwise; rows without an email always create.
// PRE: Input.Rows has a header row with at least a NAME column.
// POST: aggregate counts and per-row errors are returned; an audit event is recorded
// for non-dry runs that wrote anything.
// INVARIANT: When DryRun=true no writes occur.
func ExecuteImportDeals(ctx context.Context, input ImportDealsInput, deps ImportDealsDeps) (ImportDealsResult, error) {
	if err := requireAdmin(input.Actor); err != nil {
		return ImportDealsResult{}, err
	}
	if len(input.Rows) == 0 {
		return ImportDealsResult{}, &ImportValidationError{Message: "file has no header row"}
	}

	header := input.Rows[0]
	colIdx := make(map[string]int, len(header))
	var unknownCols []string
	for i, h := range header {
		key, ok := importColumns[normalizeHeader(h)]
		if !ok {
			if strings.TrimSpace(h) != "" {
				unknownCols = append(unknownCols, h)
			}
			continue
		}
		if _, dup := colIdx[key]; !dup {
			colIdx[key] = i
		}
	}
	if _, ok := colIdx["NAME"]; !ok {
		return ImportDealsResult{}, &ImportValidationError{Message: "file missing required column: Name"}
	}

	getCol := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	now := clock(deps.Now)
	result := ImportDealsResult{DryRun: input.DryRun, Unknown: unknownCols}
	seen := make(map[string]bool)
	rowErr := func(row int, msg string) {
		result.Errors = append(result.Errors, ImportDealRowError{Row: row, Message: msg})
	}

	for i, row := range input.Rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			continue
		}
		result.Total++

		in := DealInput{
			Name:          getCol(row, "NAME"),
			Email:         getCol(row, "EMAIL"),
			Phone:         getCol(row, "PHONE"),
			City:          getCol(row, "CITY"),
			Source:        getCol(row, "SOURCE"),
			Stage:         strings.ToLower(getCol(row, "STAGE")),
			ClassCodeMod1: getCol(row, "MOD1"),
			ClassCodeMod2: getCol(row, "MOD2"),
			OwnerID:       getCol(row, "OWNER"),
			Notes:         getCol(row, "NOTES"),
		}
		if raw := getCol(row, "VALUE"); raw != "" {
			cents, err := money.ParseCents(raw)
			if err != nil {
				rowErr(rowNum, fmt.Sprintf("invalid value %q: %v", raw, err))
				continue
			}
			in.ValueCents = cents
		}

		candidate := deal.Deal{Stage: in.Stage}
		in.apply(&candidate)
		candidate.Normalize()
		if err := candidate.Validate(); err != nil {
			rowErr(rowNum, err.Error())
			continue
		}
		if err := checkClassCodes(ctx, deps.ClassStore, candidate); err != nil {
			rowErr(rowNum, err.Error())
			continue
		}

		var existing deal.Deal
		exists := false
		if candidate.Email != "" {
			found, err := deps.DealStore.GetByEmail(ctx, candidate.Email)
			switch {
			case err == nil:
				existing, exists = found, true
			case errors.Is(err, sql.ErrNoRows):
				exists = seen[candidate.Email]
			default:
				slog.Error("deals_import_lookup_failed", "row", rowNum, "email", candidate.Email, "err", err)
				rowErr(rowNum, "lookup failed (see server log)")
				continue
			}
		}

		if exists && !input.UpdateMode {
			result.Skipped++
			continue
		}

		if input.DryRun {
			if exists {
				result.Updated++
			} else {
				result.Created++
				if candidate.Email != "" {
					seen[candidate.Email] = true
				}
			}
			continue
		}

		if exists {
			if existing.ID == "" {
				result.Skipped++
				continue
			}
			in.applySupplied(&existing, func(col string) bool { return getCol(row, col) != "" })
			existing.UpdatedAt = now
			existing.Normalize()
			if err := existing.Validate(); err != nil {
				rowErr(rowNum, err.Error())
				continue
			}
			if err := checkClassCodes(ctx, deps.ClassStore, existing); err != nil {
				rowErr(rowNum, err.Error())
				continue
			}
			if err := deps.DealStore.Save(ctx, existing); err != nil {
				slog.Error("deals_import_save_failed", "row", rowNum, "email", existing.Email, "err", err)
				rowErr(rowNum, "save failed (see server log)")
				continue
			}
			result.Updated++
			continue
		}

		candidate.ID = uuid.New().String()
		candidate.CreatedAt = now
		candidate.UpdatedAt = now
		if err := deps.DealStore.Save(ctx, candidate); err != nil {
			slog.Error("deals_import_save_failed", "row", rowNum, "email", candidate.Email, "err", err)
			rowErr(rowNum, "save failed (see server log)")
			continue
		}
		if candidate.Email != "" {
			seen[candidate.Email] = true
		}
		result.Created++
	}

	slog.Info("deals_import",
		"admin", input.Actor.ID,
		"dry_run", input.DryRun,
		"update_mode", input.UpdateMode,
		"total", result.Total,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)

	if !input.DryRun && result.Created+result.Updated > 0 {
		invalidateDashboard(ctx, deps.Cache)
		recordAudit(ctx, deps.AuditStore, audit.NewEvent(input.Actor, audit.CategoryDeal, audit.ActionImport, now).
			WithResource("deal", "").
			WithDescription(fmt.Sprintf("imported deals: %d created, %d updated, %d errors",
				result.Created, result.Updated, len(result.Errors))))
	}

	return result, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
