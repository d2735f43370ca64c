// internal/app/system/authz/roles.go
package authz

// Role flags stored on the user document. A user may carry several.
const (
	RoleAdmin                = "admin"
	RoleScholarshipHolder    = "scholarshipHolder"
	RolePromotionResponsible = "promotionResponsible"
	RoleAreaResponsible      = "areaResponsible"
	RoleActivityResponsible  = "activityResponsible"
)

// Contains reports whether the role set carries the given flag.
func Contains(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Diff compares two id-sets of responsible users and returns which entries
// were added and which removed. Used to grant/revoke the responsible roles
// when an area's or activity's responsible list changes.
func Diff[T comparable](before, after []T) (added, removed []T) {
	beforeSet := make(map[T]struct{}, len(before))
	for _, v := range before {
		beforeSet[v] = struct{}{}
	}
	afterSet := make(map[T]struct{}, len(after))
	for _, v := range after {
		afterSet[v] = struct{}{}
	}
	for _, v := range after {
		if _, ok := beforeSet[v]; !ok {
			added = append(added, v)
		}
	}
	for _, v := range before {
		if _, ok := afterSet[v]; !ok {
			removed = append(removed, v)
		}
	}
	return added, removed
}
