package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/signalnine/repbench/internal/dedup"
	"github.com/signalnine/repbench/internal/result"
	"github.com/signalnine/repbench/internal/summary"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	timeoutStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
)

type BucketSummary struct {
	Name     string
	Count    int
	Share    float64
	Timeouts int
	MeanTime float64 // over numeric times only
	HasMean  bool
	Times    []string
}

// Generate reads the summary file in logDir and renders it.
func Generate(logDir, format string, w io.Writer) error {
	s, err := summary.Load(filepath.Join(logDir, result.SummaryFile))
	if err != nil {
		return err
	}
	return Write(s, format, w)
}

// Write renders s as a table (default) or markdown.
func Write(s *summary.Summary, format string, w io.Writer) error {
	rows := aggregate(s)
	switch format {
	case "markdown":
		return writeMarkdown(rows, w)
	default:
		return writeTable(rows, w)
	}
}

func aggregate(s *summary.Summary) []BucketSummary {
	total := s.Total()
	var rows []BucketSummary
	for _, b := range s.Buckets() {
		row := BucketSummary{
			Name:  fmt.Sprintf("log%d", b.Slot),
			Count: b.Count,
			Times: b.Times,
		}
		if total > 0 {
			row.Share = float64(b.Count) / float64(total)
		}
		var sum float64
		var n int
		for _, t := range b.Times {
			if t == dedup.TimeoutMarker {
				row.Timeouts++
				continue
			}
			if v, err := strconv.ParseFloat(t, 64); err == nil {
				sum += v
				n++
			}
		}
		if n > 0 {
			row.MeanTime = sum / float64(n)
			row.HasMean = true
		}
		rows = append(rows, row)
	}
	return rows
}

func (b BucketSummary) mean() string {
	if !b.HasMean {
		return "-"
	}
	return strconv.FormatFloat(b.MeanTime, 'f', 3, 64)
}

func writeTable(rows []BucketSummary, w io.Writer) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("no trials recorded"))
		return err
	}
	header := []string{"BUCKET", "COUNT", "SHARE", "TIMEOUTS", "MEAN TIME", "TIMES"}
	cells := [][]string{header}
	for _, r := range rows {
		cells = append(cells, []string{
			r.Name,
			strconv.Itoa(r.Count),
			fmt.Sprintf("%.0f%%", r.Share*100),
			strconv.Itoa(r.Timeouts),
			r.mean(),
			strings.Join(r.Times, ", "),
		})
	}

	widths := make([]int, len(header))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	for i, row := range cells {
		var sb strings.Builder
		for j, c := range row {
			style := lipgloss.NewStyle()
			switch {
			case i == 0:
				style = headerStyle
			case j == 3 && rows[i-1].Timeouts > 0:
				style = timeoutStyle
			}
			if j < len(row)-1 {
				style = style.Width(widths[j] + 2)
			}
			sb.WriteString(style.Render(c))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}

func writeMarkdown(rows []BucketSummary, w io.Writer) error {
	if _, err := fmt.Fprint(w, "| Bucket | Count | Share | Timeouts | Mean Time | Times |\n|---|---|---|---|---|---|\n"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "| %s | %d | %.0f%% | %d | %s | %s |\n",
			r.Name, r.Count, r.Share*100, r.Timeouts, r.mean(), strings.Join(r.Times, ", ")); err != nil {
			return err
		}
	}
	return nil
}
