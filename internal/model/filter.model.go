package model

import "time"

// DayStart truncates t to midnight UTC. Date filters compare on this value so
// the time of day never matters.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TransactionFilter is a conjunction of optional predicates. From and To are
// inclusive calendar days.
type TransactionFilter struct {
	CustomerID *int64
	From       *time.Time
	To         *time.Time
}

// DateBounds returns the half-open instant range [from, to) covering the
// filter's inclusive days.
func (f TransactionFilter) DateBounds() (from, to *time.Time) {
	if f.From != nil {
		v := DayStart(*f.From)
		from = &v
	}
	if f.To != nil {
		v := DayStart(*f.To).AddDate(0, 0, 1)
		to = &v
	}
	return from, to
}

type ReportKind string

const (
	ReportKindAll      ReportKind = "all"
	ReportKindCustomer ReportKind = "customer"
	ReportKindDate     ReportKind = "date"
	ReportKindBoth     ReportKind = "both"
)

// ParseReportKind maps anything unrecognised to ReportKindAll.
func ParseReportKind(s string) ReportKind {
	switch ReportKind(s) {
	case ReportKindCustomer, ReportKindDate, ReportKindBoth:
		return ReportKind(s)
	}
	return ReportKindAll
}

type ReportQuery struct {
	Kind       ReportKind
	CustomerID *int64
	Start      *time.Time
	End        *time.Time
}

// Filter translates the query into a transaction filter. ok is false when the
// kind needs a parameter that was not given: such a predicate matches nothing.
func (q ReportQuery) Filter() (f TransactionFilter, ok bool) {
	needCustomer := q.Kind == ReportKindCustomer || q.Kind == ReportKindBoth
	needDates := q.Kind == ReportKindDate || q.Kind == ReportKindBoth

	if needCustomer {
		if q.CustomerID == nil {
			return f, false
		}
		f.CustomerID = q.CustomerID
	}
	if needDates {
		if q.Start == nil || q.End == nil {
			return f, false
		}
		f.From, f.To = q.Start, q.End
	}
	return f, true
}
