package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	codeStrip  = regexp.MustCompile(`[^A-Za-z0-9&-]`)
	batchStrip = regexp.MustCompile(`[^A-Za-z0-9&]`)
	codeSplit  = regexp.MustCompile(`[,;\s]+`)
)

// SanitizeCode normalizes scanner input: trimmed, stripped to [A-Z0-9-&], upper-cased.
func SanitizeCode(code string) string {
	return strings.ToUpper(codeStrip.ReplaceAllString(strings.TrimSpace(code), ""))
}

// SplitCodes breaks a pasted or scanned block into sanitized codes, dropping empties.
func SplitCodes(raw string) []string {
	var out []string
	for _, part := range codeSplit.Split(raw, -1) {
		if c := SanitizeCode(part); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// CategoryChar is the first letter of a product code.
func CategoryChar(category string) string {
	switch category {
	case "Packaging":
		return "P"
	case "Ingredients":
		return "I"
	case "Chemical":
		return "C"
	default:
		return "O"
	}
}

// NextProductCode returns {category}M{origin}{NNN} with NNN one past the highest
// sequence already used under the same prefix. Origin is I (import) or E (export/local).
func NextProductCode(category, origin string, existing []string) (string, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	if origin != "I" && origin != "E" {
		return "", fmt.Errorf("origin must be I or E, got %q", origin)
	}
	prefix := CategoryChar(category) + "M" + origin
	highest := 0
	for _, id := range existing {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1), nil
}

// CleanBatch keeps only [A-Z0-9&] of a batch code, as embedded in unit ids.
func CleanBatch(batch string) string {
	return strings.ToUpper(batchStrip.ReplaceAllString(batch, ""))
}

// NewUnitID builds PID-BATCH-YYYYMMDD-(YYYYMMDD|NOEXP)-SUFFIX from YYYY-MM-DD dates.
func NewUnitID(productID, batch, arrival, expiry, suffix string) string {
	exp := "NOEXP"
	if expiry != "" {
		exp = strings.ReplaceAll(expiry, "-", "")
	}
	return strings.Join([]string{
		productID,
		CleanBatch(batch),
		strings.ReplaceAll(arrival, "-", ""),
		exp,
		strings.ToUpper(suffix),
	}, "-")
}

// AutoBatchCode is DDMMYY + "DP" + suffix, used when a registration names no batch.
func AutoBatchCode(now time.Time, suffix string) string {
	return now.Format("020106") + "DP" + strings.ToUpper(suffix)
}
