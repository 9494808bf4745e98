package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Audit handles standard audit trail columns.
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CreatedBy string `gorm:"type:varchar(100)" json:"created_by"`
	UpdatedBy string `gorm:"type:varchar(100)" json:"updated_by"`
}

// NewID builds a prefixed record id: PREFIX-<unix millis>-<random>.
func NewID(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, at.UnixMilli(), RandomSuffix(5))
}

// RandomSuffix returns n upper-case alphanumeric characters taken from a fresh UUID.
func RandomSuffix(n int) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(raw) {
		n = len(raw)
	}
	return raw[:n]
}
