package export

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-harvest/internal/model"
)

// SheetName is the worksheet master records are written to.
const SheetName = "Leads"

// XLSXHeader is the first row of the exported sheet.
var XLSXHeader = []string{
	"ID", "Business Name", "Phone Number", "Website", "Email",
	"Facebook", "Instagram", "LinkedIn", "Address", "Source URL",
}

// WriteXLSX writes records to a single-sheet workbook at path, replacing any
// existing file. Missing parent directories are created.
func WriteXLSX(path string, records []model.MasterRecord) error {
	if path == "" {
		return eris.New("xlsx: output path is required")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	addStringRow(sheet, XLSXHeader)
	for _, r := range records {
		addStringRow(sheet, []string{
			strconv.FormatInt(r.ID, 10), r.BusinessName, r.PhoneNumber, r.Website, r.Email,
			r.FacebookURL, r.InstagramURL, r.LinkedInURL, r.Address, r.SourceURL,
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "xlsx: create output dir")
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
