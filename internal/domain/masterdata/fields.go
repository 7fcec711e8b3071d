package masterdata

import "pms/internal/domain/auth"

// FilterProfileFields blanks contact and grade details for callers who are
// neither the user nor a reviewer.
func FilterProfileFields(p *UserProfile, user auth.UserContext) {
	if user.Role == auth.RoleAdmin || user.Role == auth.RoleOperation {
		return
	}
	if user.NPK == p.NPK {
		return
	}
	p.Email = ""
	p.Grade = ""
}
