// Package report renders batch completion summaries for email delivery.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/mkondo/postlens/internal/batch"
	"github.com/mkondo/postlens/internal/stats"
)

// Builder renders batch reports from a shared parsed template.
type Builder struct {
	template *template.Template
}

// New creates a report builder
func New() (*Builder, error) {
	tmpl, err := template.New("report").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Builder{template: tmpl}, nil
}

// Report is a compiled report ready for sending
type Report struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// reportData is the template data structure
type reportData struct {
	Title    string
	Date     string
	Progress batch.Progress
	Duration string
	Summary  stats.Report
}

// Build creates a completion report for one batch run, paired with a fresh
// aggregation over the whole store.
func (b *Builder) Build(progress batch.Progress, summary stats.Report) (*Report, error) {
	now := time.Now()

	duration := "unknown"
	if progress.FinishedAt != nil {
		duration = progress.FinishedAt.Sub(progress.StartedAt).Round(time.Second).String()
	}

	title := "Batch Analysis Complete"
	if progress.Cancelled {
		title = "Batch Analysis Cancelled"
	}

	data := reportData{
		Title:    title,
		Date:     now.Format("Monday, January 2 15:04"),
		Progress: progress,
		Duration: duration,
		Summary:  summary,
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Subject:   fmt.Sprintf("%s - %d/%d posts", title, progress.Done, progress.Total),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		CreatedAt: now,
	}, nil
}

func buildPlainText(data reportData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s\n%s\n\n", data.Title, data.Date))
	buf.WriteString(fmt.Sprintf("Processed %d/%d posts in %s\n", data.Progress.Done, data.Progress.Total, data.Duration))
	buf.WriteString(fmt.Sprintf("  succeeded: %d\n  skipped:   %d\n  failed:    %d\n\n",
		data.Progress.Succeeded, data.Progress.Skipped, data.Progress.Failed))
	buf.WriteString(fmt.Sprintf("Store now holds %d posts (avg engagement %.2f%%, avg save rate %.2f%%)\n",
		data.Summary.TotalPosts, data.Summary.AvgEngagementRate, data.Summary.AvgSaveRate))

	if len(data.Summary.TopPosts) > 0 {
		buf.WriteString("\nTop posts by save rate:\n")
		for i, p := range data.Summary.TopPosts {
			buf.WriteString(fmt.Sprintf("%d. %.2f%% %s\n", i+1, p.SaveRate, p.SourceURL))
		}
	}

	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #1da1f2; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        .counters { display: flex; gap: 12px; margin: 15px 0; }
        .counter { background: #e8f5fd; border-radius: 8px; padding: 10px 14px; text-align: center; }
        .counter .value { font-size: 20px; font-weight: bold; color: #1da1f2; }
        .counter .label { font-size: 12px; color: #666; }
        .section { border-top: 1px solid #eee; padding: 15px 0; }
        .post { padding: 8px 0; }
        .rate { font-weight: bold; color: #1da1f2; }
        .link { color: #1da1f2; text-decoration: none; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>

        <div class="counters">
            <div class="counter"><div class="value">{{.Progress.Done}}/{{.Progress.Total}}</div><div class="label">processed</div></div>
            <div class="counter"><div class="value">{{.Progress.Succeeded}}</div><div class="label">succeeded</div></div>
            <div class="counter"><div class="value">{{.Progress.Skipped}}</div><div class="label">skipped</div></div>
            <div class="counter"><div class="value">{{.Progress.Failed}}</div><div class="label">failed</div></div>
        </div>
        <div>Finished in {{.Duration}}</div>

        <div class="section">
            Store now holds {{.Summary.TotalPosts}} posts ·
            avg engagement <span class="rate">{{printf "%.2f" .Summary.AvgEngagementRate}}%</span> ·
            avg save rate <span class="rate">{{printf "%.2f" .Summary.AvgSaveRate}}%</span>
        </div>

        {{if .Summary.TopPosts}}
        <div class="section">
            <strong>Top posts by save rate</strong>
            {{range .Summary.TopPosts}}
            <div class="post">
                <span class="rate">{{printf "%.2f" .SaveRate}}%</span> · {{.Likes}} likes ·
                <a href="{{.SourceURL}}" class="link">View on X →</a>
            </div>
            {{end}}
        </div>
        {{end}}

        <div class="footer">Generated by postlens</div>
    </div>
</body>
</html>`
