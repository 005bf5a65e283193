package web

import (
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

func itoa(value int) string {
	return strconv.Itoa(value)
}

func esc(value string) string {
	return templ.EscapeString(value)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format("2006-01-02 15:04")
}

func roundLabel(data ResultsData) string {
	if data.RoundCount == 0 {
		return "-"
	}
	return itoa(data.Round+1) + " of " + itoa(data.RoundCount)
}

// writePage wraps body in the shared document shell.
func writePage(w io.Writer, title, body string) error {
	_, err := io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>`+esc(title)+`</title>
  </head>
  <body>
    <main class="shell">
`+body+`    </main>
  </body>
</html>
`)
	return err
}
