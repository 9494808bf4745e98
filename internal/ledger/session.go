package ledger

import (
	"github.com/shopspring/decimal"
)

// ScanNote is the default note of a line built by scanning.
const ScanNote = "Count via Scanner"

// PendingLine is the in-progress count of one group.
type PendingLine struct {
	NewTotalQty decimal.Decimal `json:"new_total_qty"`
	Note        string          `json:"note"`
	IsInitial   bool            `json:"is_initial"`
	RefDate     string          `json:"ref_date"`
}

// Session is an in-progress stock-take. It is plain data so it can be persisted
// between requests; it is not safe for concurrent use.
type Session struct {
	ID             string                 `json:"id"`
	DefaultRefDate string                 `json:"default_ref_date"`
	Lines          map[string]PendingLine `json:"lines"`
}

func NewSession(id, defaultRefDate string) *Session {
	return &Session{ID: id, DefaultRefDate: defaultRefDate, Lines: make(map[string]PendingLine)}
}

// line returns the pending line of g, seeding an untouched one with seed.
func (s *Session) line(key string, seed decimal.Decimal) PendingLine {
	if s.Lines == nil {
		s.Lines = make(map[string]PendingLine)
	}
	if l, ok := s.Lines[key]; ok {
		return l
	}
	return PendingLine{NewTotalQty: seed, RefDate: s.DefaultRefDate}
}

// SetCount records a typed physical count.
func (s *Session) SetCount(g *BatchGroup, qty decimal.Decimal) {
	l := s.line(g.Key, g.TotalSystemQty)
	l.NewTotalQty = qty
	s.Lines[g.Key] = l
}

func (s *Session) SetNote(g *BatchGroup, note string) {
	l := s.line(g.Key, g.TotalSystemQty)
	l.Note = note
	s.Lines[g.Key] = l
}

// SetInitial flags the line as a back-dated baseline correction.
func (s *Session) SetInitial(g *BatchGroup, initial bool) {
	l := s.line(g.Key, g.TotalSystemQty)
	l.IsInitial = initial
	s.Lines[g.Key] = l
}

func (s *Session) SetReferenceDate(g *BatchGroup, date string) {
	l := s.line(g.Key, g.TotalSystemQty)
	l.RefDate = date
	s.Lines[g.Key] = l
}

// Scan counts one item per code. The first scan of a group starts its count from
// zero, not from the system quantity. Codes matching no group are returned.
func (s *Session) Scan(groups []BatchGroup, codes []string) (unknown []string) {
	for _, code := range codes {
		g := matchGroup(groups, code)
		if g == nil {
			unknown = append(unknown, code)
			continue
		}
		l, touched := s.Lines[g.Key]
		if !touched {
			l = PendingLine{NewTotalQty: decimal.Zero, Note: ScanNote, RefDate: s.DefaultRefDate}
		}
		l.NewTotalQty = l.NewTotalQty.Add(decimal.NewFromInt(1))
		if s.Lines == nil {
			s.Lines = make(map[string]PendingLine)
		}
		s.Lines[g.Key] = l
	}
	return unknown
}

func matchGroup(groups []BatchGroup, code string) *BatchGroup {
	for i := range groups {
		if groups[i].Matches(code) {
			return &groups[i]
		}
	}
	return nil
}

// Reset drops the pending line of key.
func (s *Session) Reset(key string) {
	delete(s.Lines, key)
}

// SummaryLine is one adjustment ready to commit.
type SummaryLine struct {
	Key         string          `json:"key"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	BatchCode   string          `json:"batch_code"`
	System      decimal.Decimal `json:"system"`
	Physical    decimal.Decimal `json:"physical"`
	Variance    decimal.Decimal `json:"variance"`
	Note        string          `json:"note"`
	IsInitial   bool            `json:"is_initial"`
	RefDate     string          `json:"ref_date"`
}

// Summary lists the lines to commit in group order. A line whose variance is zero,
// with no note and no initial flag, changes nothing and is left out, as are lines
// whose group no longer exists.
func (s *Session) Summary(groups []BatchGroup) []SummaryLine {
	var out []SummaryLine
	for i := range groups {
		g := &groups[i]
		l, ok := s.Lines[g.Key]
		if !ok {
			continue
		}
		variance := l.NewTotalQty.Sub(g.TotalSystemQty)
		if variance.IsZero() && l.Note == "" && !l.IsInitial {
			continue
		}
		out = append(out, SummaryLine{
			Key:         g.Key,
			ProductID:   g.ProductID,
			ProductName: g.ProductName,
			Unit:        g.Unit,
			BatchCode:   g.BatchCode,
			System:      g.TotalSystemQty,
			Physical:    l.NewTotalQty,
			Variance:    variance,
			Note:        l.Note,
			IsInitial:   l.IsInitial,
			RefDate:     l.RefDate,
		})
	}
	return out
}
