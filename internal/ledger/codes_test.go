package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeAndSplitCodes(t *testing.T) {
	assert.Equal(t, "PMI001-B&1X", SanitizeCode("  pmi001-b&1/x\t"))
	assert.Equal(t, []string{"PMI001", "IMI002-AB", "CMI003"}, SplitCodes("pmi001, imi002-ab;\n cmi003 ,,"))
	assert.Empty(t, SplitCodes(" ;, "))
}

func TestNextProductCode(t *testing.T) {
	existing := []string{"PMI001", "PMI009", "PME004", "IMI120", "PMIXYZ"}

	code, err := NextProductCode("Packaging", "I", existing)
	require.NoError(t, err)
	assert.Equal(t, "PMI010", code)

	code, err = NextProductCode("Ingredients", "i", existing)
	require.NoError(t, err)
	assert.Equal(t, "IMI121", code)

	code, err = NextProductCode("Spare Part", "E", existing)
	require.NoError(t, err)
	assert.Equal(t, "OME001", code)

	_, err = NextProductCode("Packaging", "X", existing)
	assert.Error(t, err)
}

func TestUnitAndBatchCodes(t *testing.T) {
	assert.Equal(t, "PMI001-B12&A-20240301-20250101-AB12",
		NewUnitID("PMI001", "b-12 &a", "2024-03-01", "2025-01-01", "ab12"))
	assert.Equal(t, "PMI001-B1-20240301-NOEXP-Z9Z9",
		NewUnitID("PMI001", "B1", "2024-03-01", "", "Z9Z9"))

	now := time.Date(2024, time.March, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "070324DPQ7X", AutoBatchCode(now, "q7x"))
}
