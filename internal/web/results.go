package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Results renders the standings of a game.
func Results(data ResultsData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`      <header class="hero">
        <span class="tag">GeoQuiz</span>
        <h1>Game `)
		b.WriteString(esc(data.Code))
		b.WriteString(`</h1>
        <p>Status: <strong class="status">`)
		b.WriteString(esc(data.Status))
		b.WriteString(`</strong> &middot; Round `)
		b.WriteString(roundLabel(data))
		b.WriteString(` &middot; Started `)
		b.WriteString(formatTime(data.CreatedAt))
		b.WriteString(`</p>
      </header>
`)
		if len(data.Rows) == 0 {
			b.WriteString(`      <p class="empty">No players joined this game.</p>
`)
		} else {
			b.WriteString(`      <table class="standings">
        <thead><tr><th>#</th><th>Player</th><th>Score</th></tr></thead>
        <tbody>
`)
			for _, row := range data.Rows {
				b.WriteString(`          <tr><td>`)
				b.WriteString(itoa(row.Rank))
				b.WriteString(`</td><td>`)
				b.WriteString(esc(row.Initials))
				b.WriteString(`</td><td>`)
				b.WriteString(itoa(row.Score))
				b.WriteString(`</td></tr>
`)
			}
			b.WriteString(`        </tbody>
      </table>
`)
		}
		return writePage(w, "GeoQuiz results", b.String())
	})
}
