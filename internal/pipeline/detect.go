package pipeline

import (
	"bytes"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

type DetectResult struct {
	IsReport bool
	Score    float64
	Reason   string
}

var detectKeywords = []string{
	"pipeline", "opportunit", "salesforce", "stage 2", "masterfile", "export", "par",
}

// DetectReportEmail scores a message for looking like a periodic CRM
// pipeline export. Rules only; anything under threshold is skipped, not
// errored, so unrelated mail in the same mailbox is harmless.
func DetectReportEmail(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".xls") || strings.HasSuffix(ln, ".csv") {
			score += 0.3
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}

	isReport := score >= 0.4
	reason := "rules_negative"
	if isReport {
		reason = "rules_positive"
	}
	return DetectResult{IsReport: isReport, Score: score, Reason: reason}
}

// PDFLooksLikeReport scans extracted PDF text for pipeline-report
// vocabulary. Used only to tell "they sent the PDF print of the report"
// apart from an unrelated PDF attachment.
func PDFLooksLikeReport(content []byte) bool {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return false
	}

	hits := 0
	pages := r.NumPage()
	if pages > 3 {
		pages = 3
	}
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		lower := strings.ToLower(text)
		for _, kw := range []string{"opportunity", "pipeline", "stage", "account"} {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
	}
	return hits >= 2
}
