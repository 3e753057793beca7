package models

import "time"

// Owner is a requester account. RemainingQuota is the allowance ledger: it is
// only ever moved by order create/cancel/resize, through a conditional update.
type Owner struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	RemainingQuota int       `json:"remaining_quota"`
	CreatedAt      time.Time `json:"created_at"`
}
