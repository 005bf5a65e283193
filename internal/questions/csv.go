package questions

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"geoquiz/internal/session"
)

// LoadCSV reads questions from a CSV file with the header
// id,text,latitude,longitude,hint,image. Hint and image may be empty.
func LoadCSV(path string) ([]session.Question, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file)
}

func ReadCSV(r io.Reader) ([]session.Question, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var out []session.Question
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if len(row) < 4 {
			return nil, fmt.Errorf("%w: line %d: want at least 4 columns, got %d", session.ErrValidation, i+1, len(row))
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad id %q", session.ErrValidation, i+1, row[0])
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad latitude %q", session.ErrValidation, i+1, row[2])
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad longitude %q", session.ErrValidation, i+1, row[3])
		}
		q := session.Question{
			ID:        id,
			Text:      strings.TrimSpace(row[1]),
			Latitude:  lat,
			Longitude: lon,
		}
		if len(row) > 4 {
			q.Hint = strings.TrimSpace(row[4])
		}
		if len(row) > 5 {
			q.Image = strings.TrimSpace(row[5])
		}
		out = append(out, q)
	}
	return out, nil
}
