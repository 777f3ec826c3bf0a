package domain

// SubjectType differentiates owner vs agent tokens; the sweep acts as the
// system subject.
type SubjectType string

const (
	SubjectTypeUser   SubjectType = "USER"
	SubjectTypeAgent  SubjectType = "AGENT"
	SubjectTypeSystem SubjectType = "SYSTEM"
)
