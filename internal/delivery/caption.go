package delivery

import (
	"fmt"
	"strings"

	"autofilter-bot/internal/models"
)

// BuildCaption fills the group caption template. Placeholders the template
// does not use are simply not substituted, and placeholders this code does
// not know stay as literal text instead of crashing the delivery.
func BuildCaption(template string, rec *models.MediaRecord) string {
	r := strings.NewReplacer(
		"{file_name}", rec.FileName,
		"{file_size}", HumanSize(rec.FileSize),
		"{file_caption}", rec.Caption,
	)
	return r.Replace(template)
}

// HumanSize renders a byte count the way file listings do.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
