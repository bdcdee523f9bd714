package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is a JSONB-stored list of ids
type StringList []string

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("StringList.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, l)
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(StringList{})
	}
	return json.Marshal(l)
}

// Contains reports whether the list holds the given id
func (l StringList) Contains(id string) bool {
	for _, existing := range l {
		if existing == id {
			return true
		}
	}
	return false
}

// Metadata is the free-form key/value payload imported alongside a transaction
type Metadata map[string]any

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("Metadata.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, m)
}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(Metadata{})
	}
	return json.Marshal(m)
}

// Transaction is an imported bank record, before or after rules have run.
// OriginalDescription preserves the bank's phrasing once a rule chain touches
// the record, so description conditions keep matching after a rule rewrites
// the display text.
type Transaction struct {
	ID                  string     `json:"id" db:"id"`
	TenantID            string     `json:"tenant_id" db:"tenant_id"`
	AccountID           *string    `json:"account_id,omitempty" db:"account_id"`
	Description         string     `json:"description" db:"description"`
	OriginalDescription *string    `json:"original_description,omitempty" db:"original_description"`
	Amount              float64    `json:"amount" db:"amount"`
	CategoryID          *string    `json:"category_id,omitempty" db:"category_id"`
	CounterpartyID      *string    `json:"counterparty_id,omitempty" db:"counterparty_id"`
	LocationID          *string    `json:"location_id,omitempty" db:"location_id"`
	UserID              *string    `json:"user_id,omitempty" db:"user_id"`
	TypeID              *string    `json:"type_id,omitempty" db:"type_id"`
	TagIDs              StringList `json:"tag_ids,omitempty" db:"tag_ids"`
	Metadata            Metadata   `json:"metadata,omitempty" db:"metadata"`
	IsIgnored           bool       `json:"is_ignored" db:"is_ignored"`
	AppliedRuleID       *string    `json:"applied_rule_id,omitempty" db:"applied_rule_id"`
	AppliedRuleIDs      StringList `json:"applied_rule_ids,omitempty" db:"applied_rule_ids"`
	OccurredAt          time.Time  `json:"occurred_at" db:"occurred_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// ImportTransactionsRequest is a batch of raw records from a bank feed
type ImportTransactionsRequest struct {
	Transactions []ImportTransaction `json:"transactions" validate:"required,min=1,dive"`
}

// ImportTransaction is a single raw record in an import batch
type ImportTransaction struct {
	AccountID   *string    `json:"account_id,omitempty"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Metadata    Metadata   `json:"metadata,omitempty"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
}

// ImportTransactionsResponse reports the outcome of an import batch
type ImportTransactionsResponse struct {
	Imported []Transaction `json:"imported"`
	Ignored  int           `json:"ignored"`
}

// TransactionListResponse is the response for listing transactions
type TransactionListResponse struct {
	Items      []Transaction `json:"items"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}

// RematchPair is a before/after preview of one transaction a rule would change
type RematchPair struct {
	Original Transaction `json:"original"`
	Updated  Transaction `json:"updated"`
}

// RematchCommitRequest optionally narrows a commit to the transactions the
// caller approved from the preview
type RematchCommitRequest struct {
	TransactionIDs []string `json:"transaction_ids,omitempty"`
}

// RematchResponse is the preview of running one rule over persisted history
type RematchResponse struct {
	RuleID     string        `json:"rule_id"`
	Pairs      []RematchPair `json:"pairs"`
	TotalPairs int           `json:"total_pairs"`
}

// RematchCommitResponse reports how many previewed changes were persisted
type RematchCommitResponse struct {
	RuleID  string `json:"rule_id"`
	Updated int    `json:"updated"`
}
