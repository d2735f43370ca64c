// internal/app/system/promos/promos.go
//
// Package promos classifies scholarship promotions (entry years) into the
// three cohorts the organization works with. The span of active student
// promotions is configured in settings; everything newer is a "chick"
// (incoming cohort) and everything older is a graduate.
package promos

// Cohort labels used in activity restrictions and reports.
const (
	GroupChick    = "chick"
	GroupStudent  = "student"
	GroupGraduate = "graduate"
)

// Span is the configured window of active student promotions, inclusive on
// both ends. Oldest <= Newest.
type Span struct {
	Oldest int `bson:"oldest_promotion" json:"oldestPromotion"`
	Newest int `bson:"newest_promotion" json:"newestPromotion"`
}

// Group returns the cohort for a promotion year under the given span.
func Group(promotion int, span Span) string {
	switch {
	case promotion > span.Newest:
		return GroupChick
	case promotion < span.Oldest:
		return GroupGraduate
	default:
		return GroupStudent
	}
}

// Known reports whether g is one of the three cohort labels.
func Known(g string) bool {
	return g == GroupChick || g == GroupStudent || g == GroupGraduate
}
