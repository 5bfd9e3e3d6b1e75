package importer

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const TemplateName = "plantilla-solicitantes.xlsx"

// 取込 API が要求する列
var (
	requiredColumns = []string{"identificacion", "primer_nombre", "primer_apellido", "correo", "telefono", "genero", "rol"}
	optionalColumns = []string{"segundo_nombre", "segundo_apellido", "ficha", "programa"}
)

var exampleRow = []any{"1001234567", "Ana", "Gómez", "ana.gomez@example.com", "3126066594", "F", "aprendiz", "María", "Ruiz", "2675859", "ADSO"}

// RequesterTemplate: 見本行付きの取込用テンプレートを生成する
func RequesterTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "solicitantes"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]any, 0, len(requiredColumns)+len(optionalColumns))
	for _, c := range requiredColumns {
		header = append(header, c)
	}
	for _, c := range optionalColumns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A2", &exampleRow); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return nil, err
	}

	// rol は選択式
	dv := excelize.NewDataValidation(true)
	if err := dv.SetDropList([]string{"aprendiz", "contratista", "funcionario", "instructor"}); err != nil {
		return nil, err
	}
	rolCol, _ := excelize.ColumnNumberToName(len(requiredColumns))
	dv.Sqref = fmt.Sprintf("%s2:%s1000", rolCol, rolCol)
	if err := f.AddDataValidation(sheet, dv); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}
