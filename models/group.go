package models

import "gorm.io/gorm"

// CandidateGroup representa un grupo de candidatos dentro de un campus.
// El motor de asignación lo trata como de solo lectura: la membresía se
// administra desde el módulo de grupos, no desde el asistente de asignación.
type CandidateGroup struct {
	gorm.Model
	Name        string `json:"name" gorm:"not null"`
	CampusID    uint   `json:"campusId" gorm:"not null"`
	AdvisorName string `json:"advisorName"`
	IsActive    *bool  `json:"isActive" gorm:"default:true"`

	Campus  *Campus       `json:"campus,omitempty" gorm:"foreignKey:CampusID"`
	Members []GroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID"`
}

// GroupMember liga un candidato a un grupo. El par (group_id, candidate_id)
// es único; Ordinal conserva el orden de alta para listados estables.
type GroupMember struct {
	gorm.Model
	GroupID     uint `json:"groupId" gorm:"not null;uniqueIndex:idx_group_candidate"`
	CandidateID uint `json:"candidateId" gorm:"not null;uniqueIndex:idx_group_candidate"`
	Ordinal     int  `json:"ordinal"`

	Candidate *Candidate `json:"candidate,omitempty" gorm:"foreignKey:CandidateID"`
}
