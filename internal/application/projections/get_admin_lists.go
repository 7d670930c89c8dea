package projections

import (
	"context"

	"crm/internal/adapters/storage/account"
	"crm/internal/adapters/storage/audit"
	"crm/internal/application/listutil"
	domainAccount "crm/internal/domain/account"
	domainAudit "crm/internal/domain/audit"
	domainOutbox "crm/internal/domain/outbox"
)

// adminListLimit caps audit and outbox listings.
const adminListLimit = 200

// GetAccountListQuery carries list parameters.
type GetAccountListQuery struct {
	Params listutil.Params
}

// GetAccountListResult carries one page of accounts.
type GetAccountListResult struct {
	Accounts []domainAccount.Account
	Page     listutil.PageInfo
}

// GetAccountListDeps holds dependencies for GetAccountList.
type GetAccountListDeps struct {
	AccountStore AccountStore
}

// QueryGetAccountList returns one page of accounts filtered by role, status
// and an email search.
func QueryGetAccountList(ctx context.Context, query GetAccountListQuery, deps GetAccountListDeps) (GetAccountListResult, error) {
	p := query.Params
	filter := account.ListFilter{
		Role:   listutil.OneOf(p.Filters[FilterRole], domainAccount.ValidRoles),
		Status: listutil.OneOf(p.Filters[FilterStatus], domainAccount.ValidStatuses),
		Search: p.Search,
		Sort:   p.Sort,
		Dir:    p.Dir,
	}
	total, err := deps.AccountStore.CountMatching(ctx, filter)
	if err != nil {
		return GetAccountListResult{}, err
	}
	page := listutil.NewPageInfo(p.Page, p.PerPage, total)
	filter.Limit = page.PerPage
	filter.Offset = (page.Page - 1) * page.PerPage
	accounts, err := deps.AccountStore.List(ctx, filter)
	if err != nil {
		return GetAccountListResult{}, err
	}
	return GetAccountListResult{Accounts: accounts, Page: page}, nil
}

// GetAuditLogQuery narrows the audit log. Zero fields are ignored.
type GetAuditLogQuery struct {
	Filter audit.Filter
}

// GetAuditLogDeps holds dependencies for GetAuditLog.
type GetAuditLogDeps struct {
	AuditStore AuditStore
}

// QueryGetAuditLog returns audit events newest first.
// POST: At most adminListLimit events are returned
func QueryGetAuditLog(ctx context.Context, query GetAuditLogQuery, deps GetAuditLogDeps) ([]domainAudit.Event, error) {
	f := query.Filter
	if f.Limit <= 0 || f.Limit > adminListLimit {
		f.Limit = adminListLimit
	}
	return deps.AuditStore.List(ctx, f)
}

// OutboxOverview lists outbox entries with per-status counts.
type OutboxOverview struct {
	Entries []domainOutbox.Entry `json:"entries"`
	Counts  map[string]int       `json:"counts"`
}

// GetOutboxDeps holds dependencies for GetOutbox.
type GetOutboxDeps struct {
	OutboxStore OutboxStore
}

// QueryGetOutbox lists entries in status (empty means all) newest first.
func QueryGetOutbox(ctx context.Context, status string, deps GetOutboxDeps) (OutboxOverview, error) {
	entries, err := deps.OutboxStore.List(ctx, status, adminListLimit)
	if err != nil {
		return OutboxOverview{}, err
	}
	counts, err := deps.OutboxStore.CountByStatus(ctx)
	if err != nil {
		return OutboxOverview{}, err
	}
	return OutboxOverview{Entries: entries, Counts: counts}, nil
}
