package main

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fauna/internal/api"
	"fauna/internal/queue"
)

var labelCaser = cases.Title(language.English)

// displayLabel renders a model label for humans ("red fox" -> "Red Fox").
func displayLabel(label string) string {
	if label == "" {
		return "-"
	}
	return labelCaser.String(label)
}

func displayConfidence(confidence float64) string {
	return fmt.Sprintf("%.1f%%", confidence*100)
}

func displayTime(value string) string {
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}

func buildQueueListRows(items []api.PhotoItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		label := "-"
		confidence := "-"
		if item.Result != nil {
			label = displayLabel(item.Result.Label)
			confidence = displayConfidence(item.Result.Confidence)
		}
		detail := ""
		if item.FailureReason != nil {
			detail = item.FailureReason.Kind
		}
		rows = append(rows, []string{
			item.ID,
			item.Status,
			label,
			confidence,
			detail,
			displayTime(item.CreatedAt),
		})
	}
	return rows
}

func buildQueueStatsRows(stats map[string]int) [][]string {
	known := make(map[string]bool, len(queue.AllStatuses()))
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		known[string(status)] = true
		rows = append(rows, []string{string(status), fmt.Sprintf("%d", stats[string(status)])})
	}

	extras := make([]string, 0)
	for status := range stats {
		if !known[status] {
			extras = append(extras, status)
		}
	}
	sort.Strings(extras)
	for _, status := range extras {
		rows = append(rows, []string{status, fmt.Sprintf("%d", stats[status])})
	}
	return rows
}

func buildItemDetailRows(item api.PhotoItem) [][]string {
	rows := [][]string{
		{"ID", item.ID},
		{"Status", item.Status},
		{"Payload", item.PayloadRef},
	}
	if item.OwnerRef != "" {
		rows = append(rows, []string{"Owner", item.OwnerRef})
	}
	if item.Result != nil {
		rows = append(rows,
			[]string{"Label", displayLabel(item.Result.Label)},
			[]string{"Confidence", displayConfidence(item.Result.Confidence)},
		)
		if item.Result.ModelVersion != "" {
			rows = append(rows, []string{"Model", item.Result.ModelVersion})
		}
		if item.Result.ProcessingTimeMs > 0 {
			rows = append(rows, []string{"Took", fmt.Sprintf("%dms", item.Result.ProcessingTimeMs)})
		}
	}
	if item.FailureReason != nil {
		rows = append(rows, []string{"Failure", item.FailureReason.Kind})
		if item.FailureReason.Detail != "" {
			rows = append(rows, []string{"Detail", item.FailureReason.Detail})
		}
	}
	if item.Attempts > 0 {
		rows = append(rows, []string{"Attempts", fmt.Sprintf("%d", item.Attempts)})
	}
	rows = append(rows,
		[]string{"Created", displayTime(item.CreatedAt)},
		[]string{"Updated", displayTime(item.UpdatedAt)},
	)
	return rows
}

func buildScoreRows(scores map[string]float64) [][]string {
	type score struct {
		label string
		value float64
	}
	ordered := make([]score, 0, len(scores))
	for label, value := range scores {
		ordered = append(ordered, score{label, value})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].value == ordered[j].value {
			return ordered[i].label < ordered[j].label
		}
		return ordered[i].value > ordered[j].value
	})

	rows := make([][]string, 0, len(ordered))
	for _, s := range ordered {
		rows = append(rows, []string{displayLabel(s.label), displayConfidence(s.value)})
	}
	return rows
}
