package db

import "time"

type CoverageModel struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	OwnerID           string    `gorm:"index;not null"`
	Amount            int64     `gorm:"not null"`
	Premium           int64     `gorm:"not null"`
	CoverageType      string    `gorm:"not null"`
	TriggerConditions []byte    `gorm:"type:jsonb;not null"`
	RiskScore         int       `gorm:"not null"`
	Status            string    `gorm:"index;not null"`
	Consumed          int64     `gorm:"not null;default:0"`
	StartAt           time.Time `gorm:"not null"`
	EndAt             time.Time `gorm:"index;not null"`
	PaidWithDiscount  bool      `gorm:"not null"`
	Chain             string    `gorm:"not null"`
	TxRef             string
	RefundAmount      int64 `gorm:"not null;default:0"`
	RefundTxRef       string
	CreatedAt         time.Time `gorm:"not null"`
}

func (CoverageModel) TableName() string {
	return "coverages"
}

type ClaimModel struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	CoverageID      string    `gorm:"type:uuid;index;not null"`
	OwnerID         string    `gorm:"index;not null"`
	Amount          int64     `gorm:"not null"`
	ClaimType       string    `gorm:"not null"`
	EvidenceRef     string    `gorm:"not null"`
	Status          string    `gorm:"index;not null"`
	SubmittedAt     time.Time `gorm:"not null"`
	ProcessedAt     *time.Time
	RejectionReason string
	OracleRequestID string
	PayoutTxRef     string
	Urgent          bool `gorm:"not null"`
}

func (ClaimModel) TableName() string {
	return "claims"
}

type VerificationRequestModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	ClaimID    string    `gorm:"type:uuid;index;not null"`
	DataPoints []byte    `gorm:"type:jsonb"`
	Signatures []byte    `gorm:"type:jsonb"`
	Consensus  bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (VerificationRequestModel) TableName() string {
	return "verification_requests"
}
