package fields

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reSkills     = regexp.MustCompile(`(?is)Skills[:\n](.*?)(?:Experience|Education|$)`)
	reSkillSplit = regexp.MustCompile(`[,;\n]`)

	reInvoiceNumber = regexp.MustCompile(`(?i)(invoice number|inv\.? no\.?)[:\s]*([A-Za-z0-9\-]+)`)
	reInvoiceDate   = regexp.MustCompile(`(?i)(date)[:\s]*([\d/\-]{6,10})`)
	reInvoiceTotal  = regexp.MustCompile(`(?i)(total amount|amount due|total)[:\s]*([\d,\.]+)`)
	reInvoiceVendor = regexp.MustCompile(`(?i)(from|vendor)[:\s]*(.+)`)

	reMarkName       = regexp.MustCompile(`(?i)Name\s*[:\-]?\s*(.+)`)
	reMarkRoll       = regexp.MustCompile(`(?i)Roll\s*No\.?\s*[:\-]?\s*(\w+)`)
	reMarkSubject    = regexp.MustCompile(`([A-Za-z\s]+)\s+(\d{1,3})`)
	reMarkTotal      = regexp.MustCompile(`(?i)Total\s*[:\-]?\s*(\d+)`)
	reMarkPercentage = regexp.MustCompile(`(?i)Percentage\s*[:\-]?\s*([\d\.]+)`)

	reChequePayee  = regexp.MustCompile(`(?i)Pay\s*to\s*the\s*Order\s*of\s*:?(.+)`)
	reChequeAmount = regexp.MustCompile(`(?i)Rs\.?\s*([\d,]+\.?\d*)`)
	reChequeDate   = regexp.MustCompile(`(?i)Date\s*[:\-]?\s*([\d/]+)`)
	reChequeBank   = regexp.MustCompile(`(?i)Bank\s*[:\-]?\s*(.+)`)

	reConsignor = regexp.MustCompile(`(?i)Consignor\s*[:\-]?\s*(.+)`)
	reConsignee = regexp.MustCompile(`(?i)Consignee\s*[:\-]?\s*(.+)`)
	reFreight   = regexp.MustCompile(`(?i)Freight\s*[:\-]?\s*([\d,\.]+)`)
)

func extractResume(text string) *FieldMap {
	skills := []string{}
	if m := reSkills.FindStringSubmatch(text); m != nil {
		for _, s := range reSkillSplit.Split(m[1], -1) {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
	}
	return NewFieldMap().
		Set("email", findEmail(text)).
		Set("phone", findPhone(text)).
		Set("name", firstLine(text)).
		Set("skills", skills)
}

func extractInvoice(text string) *FieldMap {
	return NewFieldMap().
		Set("invoice_number", group(reInvoiceNumber, text, 2)).
		Set("date", group(reInvoiceDate, text, 2)).
		Set("total_amount", group(reInvoiceTotal, text, 2)).
		Set("vendor", group(reInvoiceVendor, text, 2))
}

func extractMarksheet(text string) *FieldMap {
	subjects := NewFieldMap()
	for _, m := range reMarkSubject.FindAllStringSubmatch(text, -1) {
		subject := strings.TrimSpace(m[1])
		marks, err := strconv.Atoi(m[2])
		if err != nil || len(subject) <= 2 || marks > 100 {
			continue
		}
		subjects.Set(subject, marks)
	}

	fm := NewFieldMap().
		Set("name", group(reMarkName, text, 1)).
		Set("roll_no", group(reMarkRoll, text, 1)).
		Set("subjects", subjects).
		Set("total", NotFound).
		Set("percentage", NotFound)
	if n, err := strconv.Atoi(group(reMarkTotal, text, 1)); err == nil {
		fm.Set("total", n)
	}
	if f, err := strconv.ParseFloat(group(reMarkPercentage, text, 1), 64); err == nil {
		fm.Set("percentage", f)
	}
	return fm
}

func extractCheque(text string) *FieldMap {
	fm := NewFieldMap().
		Set("payee", group(reChequePayee, text, 1)).
		Set("amount", group(reChequeAmount, text, 1)).
		Set("date", group(reChequeDate, text, 1)).
		Set("bank", group(reChequeBank, text, 1))
	return fm.Set("fields", flatten(fm, "payee", "amount", "date", "bank"))
}

func extractLorryChallan(text string) *FieldMap {
	fm := NewFieldMap().
		Set("consignor", group(reConsignor, text, 1)).
		Set("consignee", group(reConsignee, text, 1)).
		Set("freight", group(reFreight, text, 1))
	return fm.Set("fields", flatten(fm, "consignor", "consignee", "freight"))
}

var companyMarkers = []string{"inc", "ltd", "company", "corp"}

func extractBusinessCard(text string) *FieldMap {
	lines := nonBlankLines(text)
	name, company := NotFound, NotFound
	if len(lines) > 0 {
		name = lines[0]
	}
	if len(lines) > 1 {
		next := strings.ToLower(lines[1])
		for _, w := range companyMarkers {
			if strings.Contains(next, w) {
				company = lines[1]
				break
			}
		}
	}
	return NewFieldMap().
		Set("email", findEmail(text)).
		Set("phone", findPhone(text)).
		Set("name", name).
		Set("company", company)
}

func extractGeneric(text string) *FieldMap {
	return NewFieldMap().
		Set("line_count", len(nonBlankLines(text))).
		Set("word_count", len(strings.Fields(text))).
		Set("email", findEmail(text)).
		Set("phone", findPhone(text))
}
