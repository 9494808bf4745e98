package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionScanStartsFromZero(t *testing.T) {
	products, units := groupingFixture()
	groups := GroupUnits(products, units)
	s := NewSession("s1", "2024-03-01")

	unknown := s.Scan(groups, []string{"PMI001-B1-1", "pmi001-b1-2", "PMI001-B1-1", "NOPE"})
	assert.Equal(t, []string{"NOPE"}, unknown)

	line := s.Lines["PMI001|B1"]
	assert.True(t, qty("3").Equal(line.NewTotalQty))
	assert.Equal(t, ScanNote, line.Note)
	assert.Equal(t, "2024-03-01", line.RefDate)
}

func TestSessionScanContinuesTypedCount(t *testing.T) {
	products, units := groupingFixture()
	groups := GroupUnits(products, units)
	b2, _ := FindGroup(groups, "PMI001|B2")
	s := NewSession("s1", "")

	s.SetCount(b2, qty("10"))
	s.Scan(groups, []string{"PMI001-B2-1"})
	assert.True(t, qty("11").Equal(s.Lines[b2.Key].NewTotalQty))
}

func TestSessionEditsSeedFromSystemQty(t *testing.T) {
	products, units := groupingFixture()
	groups := GroupUnits(products, units)
	b1, _ := FindGroup(groups, "PMI001|B1")
	s := NewSession("s1", "2024-03-01")

	s.SetNote(b1, "rak 3")
	line := s.Lines[b1.Key]
	assert.True(t, qty("45").Equal(line.NewTotalQty))
	assert.Equal(t, "rak 3", line.Note)

	s.Reset(b1.Key)
	assert.NotContains(t, s.Lines, b1.Key)
}

func TestSessionSummaryDropsNoOps(t *testing.T) {
	products, units := groupingFixture()
	groups := GroupUnits(products, units)
	b1, _ := FindGroup(groups, "PMI001|B1")
	b2, _ := FindGroup(groups, "PMI001|B2")
	alk, _ := FindGroup(groups, "CMI003|GLOBAL")
	gula, _ := FindGroup(groups, "IMI002|GLOBAL")
	s := NewSession("s1", "2024-03-01")

	s.SetCount(b1, qty("45"))
	s.SetCount(b2, qty("18"))
	s.SetInitial(alk, true)
	s.SetCount(gula, qty("12"))
	s.SetNote(gula, "cek ulang")

	summary := s.Summary(groups)
	require.Len(t, summary, 3)
	assert.Equal(t, "CMI003|GLOBAL", summary[0].Key)
	assert.True(t, summary[0].Variance.IsZero())
	assert.True(t, summary[0].IsInitial)
	assert.Equal(t, "IMI002|GLOBAL", summary[1].Key)
	assert.Equal(t, "PMI001|B2", summary[2].Key)
	assert.True(t, qty("-2").Equal(summary[2].Variance))
}
