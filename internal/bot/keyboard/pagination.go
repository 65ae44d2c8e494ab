package keyboard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Proton-105/donation-bot/internal/i18n"
)

// PageSize is the number of list entries per page.
const PageSize = 8

// PaginationButtons returns up to three inline buttons (prev, current page, next)
// allowing the caller to paginate lists using a shared action prefix.
func PaginationButtons(t i18n.Translator, action string, page, totalPages int) []InlineButton {
	if totalPages < 1 {
		totalPages = 1
	}
	page = ClampPage(page, totalPages)

	buttons := make([]InlineButton, 0, 3)

	if page > 1 {
		buttons = append(buttons, InlineButton{
			Text:   translated(t, "pagination.prev", "◀️"),
			Unique: action,
			Data:   strconv.Itoa(page - 1),
		})
	}

	buttons = append(buttons, InlineButton{
		Text:   paginationLabel(t, page, totalPages),
		Unique: action,
		Data:   strconv.Itoa(page),
	})

	if page < totalPages {
		buttons = append(buttons, InlineButton{
			Text:   translated(t, "pagination.next", "▶️"),
			Unique: action,
			Data:   strconv.Itoa(page + 1),
		})
	}

	return buttons
}

// TotalPages returns the page count for n entries, at least one.
func TotalPages(n int) int {
	if n <= 0 {
		return 1
	}
	return (n + PageSize - 1) / PageSize
}

// ClampPage bounds page to [1, totalPages].
func ClampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// PageBounds returns the slice bounds of page for n entries.
func PageBounds(page, n int) (int, int) {
	page = ClampPage(page, TotalPages(n))
	start := (page - 1) * PageSize
	end := start + PageSize
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

func translated(t i18n.Translator, key, fallback string) string {
	if t == nil {
		return fallback
	}

	text := strings.TrimSpace(t.T(key))
	if text == "" || text == key {
		return fallback
	}

	return text
}

func paginationLabel(t i18n.Translator, page, total int) string {
	if t == nil {
		return fmt.Sprintf("%d/%d", page, total)
	}

	label := t.T("pagination.page", "page", page, "total", total)
	if label == "pagination.page" || strings.Contains(label, "{") {
		return fmt.Sprintf("%d/%d", page, total)
	}

	return label
}
