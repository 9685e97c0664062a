package usecase

import (
	"fmt"
	"strings"

	"PriceNewsScanner/internal/domain"
)

// FormatDigest renders newly stored articles as a plain-text chat message.
func FormatDigest(articles []domain.SummarizedArticle) string {
	if len(articles) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "物價新聞更新 (%d)\n\n", len(articles))
	for _, a := range articles {
		fmt.Fprintf(&sb, "• %s\n", a.Title)
		if a.Summary != "" {
			fmt.Fprintf(&sb, "影響：%s\n", a.Summary)
		}
		if a.Reason != "" {
			fmt.Fprintf(&sb, "原因：%s\n", a.Reason)
		}
		fmt.Fprintf(&sb, "%s\n\n", a.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}
