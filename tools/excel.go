package tools

import (
	"fmt"
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	excelTimeLayout  = "2006-01-02 15:04"
	maxColumnWidth   = 60
)

// ExportToExcel 把结构体切片写入 sheet，表头取 excel 标签，"-" 跳过该字段
// 嵌入结构体展开，指针字段为 nil 时写空，time.Time 按分钟格式化，零值写空
func ExportToExcel(f *excelize.File, sheet string, data interface{}) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		return fmt.Errorf("data %T 不是切片", data)
	}

	elemType := v.Type().Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("data %T 不是结构体切片", data)
	}

	if sheet == "" {
		sheet = "Sheet1"
	}
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return errors.WithStack(err)
	}
	f.SetActiveSheet(idx)

	fields := collectFields(elemType, nil)
	widths := make([]int, len(fields))

	// 表头
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0EBF5"}, Pattern: 1},
	})
	if err != nil {
		return errors.WithStack(err)
	}
	for i, fi := range fields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, fi.header); err != nil {
			return errors.WithStack(err)
		}
		widths[i] = utf8.RuneCountInString(fi.header)
	}
	last, _ := excelize.CoordinatesToCellName(max(len(fields), 1), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return errors.WithStack(err)
	}

	// 数据行，nil 元素不占行
	row := 2
	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i)
		if elem.Kind() == reflect.Ptr {
			if elem.IsNil() {
				continue
			}
			elem = elem.Elem()
		}

		for col, fi := range fields {
			value := cellValue(elem.FieldByIndex(fi.index))
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return errors.WithStack(err)
			}
			if n := utf8.RuneCountInString(fmt.Sprint(value)); n > widths[col] {
				widths[col] = n
			}
		}
		row++
	}

	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, name, name, float64(min(w+2, maxColumnWidth))); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}))
}

type fieldInfo struct {
	index  []int
	header string
}

func collectFields(t reflect.Type, parent []int) []fieldInfo {
	var fields []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		idx := append(append([]int(nil), parent...), i)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			fields = append(fields, collectFields(sf.Type, idx)...)
			continue
		}

		tag := sf.Tag.Get("excel")
		if tag == "-" {
			continue
		}
		if tag == "" {
			tag = sf.Name
		}
		fields = append(fields, fieldInfo{index: idx, header: tag})
	}
	return fields
}

func cellValue(fv reflect.Value) interface{} {
	if fv.Kind() == reflect.Ptr {
		if fv.IsNil() {
			return ""
		}
		fv = fv.Elem()
	}
	if t, ok := fv.Interface().(time.Time); ok {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(excelTimeLayout)
	}
	return fv.Interface()
}
