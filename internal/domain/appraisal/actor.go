package appraisal

// Actor is the resolved caller every operation is evaluated against.
type Actor struct {
	NPK  string `json:"npk"`
	Role Role   `json:"role"`
}

func (a Actor) IsReviewer() bool {
	return a.Role == RoleAdmin || a.Role == RoleOperation
}

func (a Actor) Owns(ipp IPP) bool {
	return a.NPK != "" && a.NPK == ipp.OwnerNPK
}

// CanRead reports whether the actor may see the plan at all.
func (a Actor) CanRead(ipp IPP) bool {
	return a.Owns(ipp) || a.IsReviewer()
}
