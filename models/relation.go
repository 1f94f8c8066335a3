package models

import "time"

// UserRelation pairs two users. Either party may assign tasks to the other once ACCEPTED.
type UserRelation struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	InitiatorID    uint           `gorm:"index;not null" json:"initiator_id"`
	PartnerID      uint           `gorm:"index;not null" json:"partner_id"`
	Name           string         `gorm:"size:64" json:"name"`
	Status         RelationStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	UnbindExpireAt *time.Time     `gorm:"index" json:"unbind_expire_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// HasParty reports whether userID is one side of the relation.
func (r *UserRelation) HasParty(userID uint) bool {
	return r.InitiatorID == userID || r.PartnerID == userID
}

// Other returns the party that is not userID.
func (r *UserRelation) Other(userID uint) uint {
	if r.InitiatorID == userID {
		return r.PartnerID
	}
	return r.InitiatorID
}

// RelationHistory is the immutable audit trail of relation transitions.
// OperatorID 0 means the transition was made by the scheduler.
type RelationHistory struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RelationID uint           `gorm:"index;not null" json:"relation_id"`
	Action     RelationAction `gorm:"type:varchar(24);not null" json:"action"`
	OperatorID uint           `gorm:"not null" json:"operator_id"`
	Reason     string         `gorm:"size:255" json:"reason"`
	CreatedAt  time.Time      `json:"created_at"`
}
