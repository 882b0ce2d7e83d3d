package report

import (
	"html"
	"strings"

	"smm-analytics/internal/domain"
)

// FormatSummary формирует текстовое представление свежего отчёта для отправки
// владельцу аккаунта.
func FormatSummary(result domain.GenerationResult) string {
	var sections []string

	if report := result.ComparativeData; report != nil && len(report.ExecutiveSummary) > 0 {
		var builder strings.Builder
		builder.WriteString("📊 <b>Сводка по рынку</b>\n")
		for _, line := range report.ExecutiveSummary {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			builder.WriteString("- " + escapeHTML(trimmed) + "\n")
		}
		if section := strings.TrimSpace(builder.String()); section != "" {
			sections = append(sections, section)
		}
	}

	if len(result.Insights) > 0 {
		var builder strings.Builder
		builder.WriteString("💡 <b>Инсайты</b>")
		for _, insight := range result.Insights {
			title := strings.TrimSpace(insight.Title)
			description := strings.TrimSpace(insight.Description)
			if title == "" && description == "" {
				continue
			}
			builder.WriteString("\n\n<b>" + escapeHTML(title) + "</b>")
			if description != "" {
				builder.WriteString("\n" + escapeHTML(description))
			}
		}
		if section := strings.TrimSpace(builder.String()); section != "💡 <b>Инсайты</b>" {
			sections = append(sections, section)
		}
	}

	if len(sections) == 0 && result.Message != "" {
		sections = append(sections, escapeHTML(result.Message))
	}

	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}
