package fee

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RollupStatus is the collection status shown on an overview row
type RollupStatus string

const (
	RollupPaid          RollupStatus = "paid"
	RollupPaidByOther   RollupStatus = "paid_by_other"
	RollupPartialPaid   RollupStatus = "partial_paid"
	RollupPending       RollupStatus = "pending"
	RollupNotSent       RollupStatus = "not_sent"
	RollupNotCalculated RollupStatus = "not_calculated"
)

// ClientRollupStatus maps a client's fee status to its overview status.
// A nil status means the client has no calculation for the year.
func ClientRollupStatus(status *FeeStatus, paidByOther bool) RollupStatus {
	if status == nil {
		return RollupNotCalculated
	}
	if paidByOther {
		return RollupPaidByOther
	}
	switch *status {
	case FeeStatusDraft:
		return RollupNotSent
	case FeeStatusSent, FeeStatusOverdue:
		return RollupPending
	case FeeStatusPaid:
		return RollupPaid
	case FeeStatusPartialPaid:
		return RollupPartialPaid
	}
	return RollupNotCalculated
}

// ClientStatusRow is one client's overview figures for a year
type ClientStatusRow struct {
	ClientID        uuid.UUID        `json:"client_id"`
	Name            string           `json:"name"`
	TaxID           string           `json:"tax_id"`
	GroupID         *uuid.UUID       `json:"group_id,omitempty"`
	Status          RollupStatus     `json:"status"`
	AmountBeforeVAT *decimal.Decimal `json:"amount_before_vat,omitempty"`
	AmountWithVAT   *decimal.Decimal `json:"amount_with_vat,omitempty"`
}

// GroupInfo is a group with its optional group-level calculation
type GroupInfo struct {
	Group       Group
	Calculation *GroupCalculation
}

// RollupKind distinguishes group summaries from standalone clients
type RollupKind string

const (
	RollupKindGroup  RollupKind = "group"
	RollupKindClient RollupKind = "client"
)

// RollupRow is a group summary or a standalone client
type RollupRow struct {
	Kind                RollupKind        `json:"kind"`
	ID                  uuid.UUID         `json:"id"`
	Name                string            `json:"name"`
	Status              RollupStatus      `json:"status"`
	AmountBeforeVAT     *decimal.Decimal  `json:"amount_before_vat,omitempty"`
	AmountWithVAT       *decimal.Decimal  `json:"amount_with_vat,omitempty"`
	HasGroupCalculation bool              `json:"has_group_calculation"`
	Members             []ClientStatusRow `json:"members,omitempty"`
}

// GroupCalculationStatus derives a group's status from its own calculation
func GroupCalculationStatus(c *GroupCalculation) RollupStatus {
	switch c.Status {
	case FeeStatusPaid:
		return RollupPaid
	case FeeStatusSent:
		if c.SentAt != nil {
			return RollupPending
		}
		return RollupNotSent
	case FeeStatusDraft:
		return RollupNotSent
	}
	return RollupNotCalculated
}

// GroupMemberStatus derives a group's status from its members.
// Rules are checked in order and the first match wins.
func GroupMemberStatus(statuses []RollupStatus) RollupStatus {
	if allOf(statuses, RollupPaid, RollupPaidByOther) {
		return RollupPaid
	}
	if anyOf(statuses, RollupPartialPaid) {
		return RollupPartialPaid
	}
	if anyOf(statuses, RollupPending) {
		return RollupPending
	}
	if allOf(statuses, RollupNotSent) {
		return RollupNotSent
	}
	if allOf(statuses, RollupNotCalculated) {
		return RollupNotCalculated
	}
	// mixed states without a matching rule
	return RollupNotCalculated
}

func allOf(statuses []RollupStatus, accepted ...RollupStatus) bool {
	for _, s := range statuses {
		if !containsStatus(accepted, s) {
			return false
		}
	}
	return true
}

func anyOf(statuses []RollupStatus, wanted RollupStatus) bool {
	return containsStatus(statuses, wanted)
}

func containsStatus(list []RollupStatus, s RollupStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Rollup partitions clients by group and builds one summary per group.
// Clients without a group pass through as their own rows.
// The result is sorted by name with compareNames.
func Rollup(clients []ClientStatusRow, groups map[uuid.UUID]GroupInfo, compareNames NameComparer) []RollupRow {
	members := make(map[uuid.UUID][]ClientStatusRow)
	var order []uuid.UUID
	rows := make([]RollupRow, 0, len(clients))

	for _, c := range clients {
		if c.GroupID == nil {
			rows = append(rows, RollupRow{
				Kind:            RollupKindClient,
				ID:              c.ClientID,
				Name:            c.Name,
				Status:          c.Status,
				AmountBeforeVAT: c.AmountBeforeVAT,
				AmountWithVAT:   c.AmountWithVAT,
			})
			continue
		}
		if _, seen := members[*c.GroupID]; !seen {
			order = append(order, *c.GroupID)
		}
		members[*c.GroupID] = append(members[*c.GroupID], c)
	}

	for _, groupID := range order {
		info := groups[groupID]
		rows = append(rows, summarizeGroup(groupID, info, members[groupID], compareNames))
	}

	if compareNames != nil {
		sort.SliceStable(rows, func(i, j int) bool {
			return compareNames(rows[i].Name, rows[j].Name) < 0
		})
	}
	return rows
}

func summarizeGroup(groupID uuid.UUID, info GroupInfo, members []ClientStatusRow, compareNames NameComparer) RollupRow {
	row := RollupRow{
		Kind:    RollupKindGroup,
		ID:      groupID,
		Name:    info.Group.Name,
		Members: members,
	}
	if compareNames != nil {
		sort.SliceStable(row.Members, func(i, j int) bool {
			return compareNames(row.Members[i].Name, row.Members[j].Name) < 0
		})
	}

	calc := info.Calculation
	if calc != nil {
		row.HasGroupCalculation = true
		row.Status = GroupCalculationStatus(calc)
	} else {
		statuses := make([]RollupStatus, len(members))
		for i, m := range members {
			statuses[i] = m.Status
		}
		row.Status = GroupMemberStatus(statuses)
	}

	if calc != nil && calc.FinalAmountBeforeVAT != nil {
		row.AmountBeforeVAT = calc.FinalAmountBeforeVAT
	} else {
		row.AmountBeforeVAT = sumAmounts(members, func(m ClientStatusRow) *decimal.Decimal { return m.AmountBeforeVAT })
	}
	if calc != nil && calc.TotalWithVAT != nil {
		row.AmountWithVAT = calc.TotalWithVAT
	} else {
		row.AmountWithVAT = sumAmounts(members, func(m ClientStatusRow) *decimal.Decimal { return m.AmountWithVAT })
	}
	return row
}

func sumAmounts(members []ClientStatusRow, pick func(ClientStatusRow) *decimal.Decimal) *decimal.Decimal {
	var total *decimal.Decimal
	for _, m := range members {
		v := pick(m)
		if v == nil {
			continue
		}
		if total == nil {
			sum := *v
			total = &sum
			continue
		}
		sum := total.Add(*v)
		total = &sum
	}
	return total
}
