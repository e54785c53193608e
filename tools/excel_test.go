package tools

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type base struct {
	ID string `excel:"ID"`
}

type row struct {
	base
	Title    string    `excel:"Title"`
	Raised   float64   `excel:"Raised"`
	Note     *string   `excel:"Note"`
	Deadline time.Time `excel:"Deadline"`
	Secret   string    `excel:"-"`
	hidden   int
}

func TestExportToExcel(t *testing.T) {
	note := "first"
	data := []*row{
		{base: base{ID: "c1"}, Title: "Solar", Raised: 12.5, Note: &note, Deadline: time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC), Secret: "x"},
		nil,
		{base: base{ID: "c2"}, Title: "Water"},
	}

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, ExportToExcel(f, "Campaigns", data))

	rows, err := f.GetRows("Campaigns")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Title", "Raised", "Note", "Deadline"}, rows[0])
	assert.Equal(t, []string{"c1", "Solar", "12.5", "first", "2026-04-01 09:30"}, rows[1])
	assert.Equal(t, "c2", rows[2][0])
	assert.Equal(t, "Water", rows[2][1])
}

func TestExportToExcel_EmptyWritesHeader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, ExportToExcel(f, "", []row{}))

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ID", rows[0][0])
}

func TestExportToExcel_RejectsNonStructSlice(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	assert.Error(t, ExportToExcel(f, "", 42))
	assert.Error(t, ExportToExcel(f, "", []int{1}))
}

func TestSendAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendAttachment(c, "campaigns 2026.xlsx", ExcelContentType, []byte("data"))
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, ExcelContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "campaigns%202026.xlsx")
	assert.Equal(t, "data", w.Body.String())
}
