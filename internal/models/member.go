package models

import (
	"time"
)

type MemberRole string

const (
	RoleAdmin     MemberRole = "ADMIN"
	RoleTreasurer MemberRole = "TRESORIER"
	RoleMember    MemberRole = "MEMBRE"
)

// Member links a user to a bureau.
type Member struct {
	UID      string     `firestore:"uid" json:"uid"`
	BureauID string     `firestore:"bureauId" json:"bureauId"`
	Role     MemberRole `firestore:"role" json:"role"`
	JoinedAt time.Time  `firestore:"joinedAt" json:"joinedAt"`
}
