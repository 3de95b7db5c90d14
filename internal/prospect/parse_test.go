package prospect

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospect-cli/internal/model"
)

func TestParseCSV(t *testing.T) {
	text := `Empresa,Segmento,Cidade,UF,E-mail,Telefone,Site
"Padaria Central", padaria ,Curitiba,PR,contato@padaria.com.br,(41) 3333-4444,padaria.com.br
,mercado,Londrina,PR,x@y.com,,
'Oficina do Zé',oficina,Maringá,PR,,,`

	leads := ParseCSV(text)
	require.Len(t, leads, 2)
	assert.Equal(t, model.PartialLead{
		CompanyName: "Padaria Central",
		Segment:     "padaria",
		City:        "Curitiba",
		State:       "PR",
		Email:       "contato@padaria.com.br",
		Phone:       "(41) 3333-4444",
		Website:     "padaria.com.br",
	}, leads[0])
	assert.Equal(t, "Oficina do Zé", leads[1].CompanyName)
	assert.Empty(t, leads[1].Email)
}

func TestParseCSV_HeaderSynonyms(t *testing.T) {
	text := "razão social,ramo,city,estado,email,tel,wpp,url\nAcme,tech,SP,SP,a@b.com,1,2,acme.com"
	leads := ParseCSV(text)
	require.Len(t, leads, 1)
	assert.Equal(t, "Acme", leads[0].CompanyName)
	assert.Equal(t, "tech", leads[0].Segment)
	assert.Equal(t, "2", leads[0].WhatsApp)
	assert.Equal(t, "acme.com", leads[0].Website)
}

func TestParseCSV_TooShort(t *testing.T) {
	assert.Empty(t, ParseCSV(""))
	assert.Empty(t, ParseCSV("empresa,cidade"))
	assert.Empty(t, ParseCSV("  \n  "))
}

func TestParseCSV_UnknownColumnsIgnored(t *testing.T) {
	leads := ParseCSV("nome,observacao\nAcme,cliente antigo")
	require.Len(t, leads, 1)
	assert.Equal(t, model.PartialLead{CompanyName: "Acme"}, leads[0])
}

func TestParseXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"Nome", "Cidade", "Email"},
		{"Padaria Central", "Curitiba", "contato@padaria.com.br"},
		{"", "Londrina", "x@y.com"},
	} {
		row := sheet.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, f.Save(path))

	leads, err := ParseXLSX(path)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Curitiba", leads[0].City)
}

func TestParseXLSX_MissingFile(t *testing.T) {
	_, err := ParseXLSX(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
