package models

// AnswerType classifies what a question accepts and how its votes are tallied.
type AnswerType string

const (
	AnswerMember        AnswerType = "member"
	AnswerJudge         AnswerType = "judge"
	AnswerEventDirector AnswerType = "event_director"
	AnswerTeam          AnswerType = "team"
	AnswerRetailer      AnswerType = "retailer"
	AnswerManufacturer  AnswerType = "manufacturer"
	AnswerVenue         AnswerType = "venue"
	AnswerText          AnswerType = "text"
)

// AnswerKind groups answer types that share validation, storage and aggregation.
type AnswerKind int

const (
	KindUnknown AnswerKind = iota
	// KindProfile answers reference a profile id (member, judge, event director).
	KindProfile
	// KindTeam answers reference a team id.
	KindTeam
	// KindTextEntity answers store an entity's display name and are tallied by exact string.
	KindTextEntity
	// KindText answers are free text and are never tallied.
	KindText
)

func (k AnswerKind) String() string {
	switch k {
	case KindProfile:
		return "profile"
	case KindTeam:
		return "team"
	case KindTextEntity:
		return "text_entity"
	case KindText:
		return "text"
	}
	return "unknown"
}

var answerKinds = map[AnswerType]AnswerKind{
	AnswerMember:        KindProfile,
	AnswerJudge:         KindProfile,
	AnswerEventDirector: KindProfile,
	AnswerTeam:          KindTeam,
	AnswerRetailer:      KindTextEntity,
	AnswerManufacturer:  KindTextEntity,
	AnswerVenue:         KindTextEntity,
	AnswerText:          KindText,
}

// Kind returns the answer kind for t, or KindUnknown.
func (t AnswerType) Kind() AnswerKind {
	return answerKinds[t]
}

// Valid reports whether t is a known answer type.
func (t AnswerType) Valid() bool {
	return t.Kind() != KindUnknown
}

// Searchable reports whether candidates for t come from a directory lookup.
func (t AnswerType) Searchable() bool {
	return t.Valid() && t != AnswerText
}

// AnswerTypes lists every known answer type in a stable order.
func AnswerTypes() []AnswerType {
	return []AnswerType{
		AnswerMember, AnswerJudge, AnswerEventDirector, AnswerTeam,
		AnswerRetailer, AnswerManufacturer, AnswerVenue, AnswerText,
	}
}
