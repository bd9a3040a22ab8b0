package companies

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/octane-tech/nfc-tracker/internal/tabular"
)

// Header aliases in order of preference.
var (
	nameAliases = normalizeAll("name", "company name", "company_name", "company", "الاسم", "اسم الشركة", "الشركة")
	codeAliases = normalizeAll("code", "company code", "company_code", "الكود", "الرمز", "كود الشركة", "رمز الشركة")
)

func normalizeAll(aliases ...string) []string {
	out := make([]string, len(aliases))
	for i, a := range aliases {
		out[i] = normalizeHeader(a)
	}
	return out
}

// normalizeHeader folds case, applies NFC and collapses whitespace.
func normalizeHeader(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Extract resolves the name and code columns of each row by alias and drops
// rows where either value is empty. It returns the entries and the number
// of rows dropped.
func Extract(rows []tabular.Row) ([]Entry, int) {
	entries := make([]Entry, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		normalized := make(map[string]string, len(row))
		for header, value := range row {
			key := normalizeHeader(header)
			if value = strings.TrimSpace(value); value != "" || normalized[key] == "" {
				normalized[key] = value
			}
		}
		name := pick(normalized, nameAliases)
		code := pick(normalized, codeAliases)
		if name == "" || code == "" {
			skipped++
			continue
		}
		entries = append(entries, Entry{Name: name, Code: code})
	}
	return entries, skipped
}

func pick(values map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v := values[alias]; v != "" {
			return v
		}
	}
	return ""
}
