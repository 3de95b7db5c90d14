// Package prospect brings leads into the store: CSV and spreadsheet
// imports, manual entries, and Google Places search sourcing.
package prospect

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospect-cli/internal/model"
)

// headerMap maps the header spellings seen in customer spreadsheets to
// lead fields.
var headerMap = map[string]string{
	"empresa":      "company_name",
	"nome":         "company_name",
	"company":      "company_name",
	"company_name": "company_name",
	"razao_social": "company_name",
	"razão social": "company_name",
	"segmento":     "segment",
	"segment":      "segment",
	"ramo":         "segment",
	"cidade":       "city",
	"city":         "city",
	"estado":       "state",
	"state":        "state",
	"uf":           "state",
	"email":        "email",
	"e-mail":       "email",
	"telefone":     "phone",
	"phone":        "phone",
	"tel":          "phone",
	"whatsapp":     "whatsapp",
	"wpp":          "whatsapp",
	"zap":          "whatsapp",
	"site":         "website",
	"website":      "website",
	"url":          "website",
}

// ParseCSV reads a comma separated export. The first line is the header;
// rows without a company name are dropped.
func ParseCSV(text string) []model.PartialLead {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(text)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			break
		}
		rows = append(rows, rec)
	}
	return fromRows(rows)
}

// ParseXLSX reads the first sheet of a spreadsheet with the same header
// rules as ParseCSV.
func ParseXLSX(path string) ([]model.PartialLead, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "prospect: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("prospect: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return fromRows(rows), nil
}

func fromRows(rows [][]string) []model.PartialLead {
	if len(rows) < 2 {
		return []model.PartialLead{}
	}

	fields := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		fields[i] = headerMap[strings.ToLower(cleanValue(h))]
	}

	leads := make([]model.PartialLead, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var l model.PartialLead
		for i, v := range row {
			if i >= len(fields) || fields[i] == "" {
				continue
			}
			v = cleanValue(v)
			if v == "" {
				continue
			}
			setField(&l, fields[i], v)
		}
		if l.CompanyName != "" {
			leads = append(leads, l)
		}
	}
	return leads
}

func setField(l *model.PartialLead, field, v string) {
	switch field {
	case "company_name":
		l.CompanyName = v
	case "segment":
		l.Segment = v
	case "city":
		l.City = v
	case "state":
		l.State = v
	case "email":
		l.Email = v
	case "phone":
		l.Phone = v
	case "whatsapp":
		l.WhatsApp = v
	case "website":
		l.Website = v
	}
}

// cleanValue trims whitespace and one pair of surrounding quotes.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(strings.TrimPrefix(v, `"`), `'`)
	v = strings.TrimSuffix(strings.TrimSuffix(v, `"`), `'`)
	return strings.TrimSpace(v)
}
