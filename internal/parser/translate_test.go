package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_CoercesFields(t *testing.T) {
	t.Parallel()

	tr := NewTranslator(nil, "Thiết bị sản xuất")
	in := tr.Translate(RawRow{
		Line: 7,
		Cells: map[string]any{
			"Mã máy":           " M-07 ",
			"Loại máy":         "Máy khâu",
			"Serial":           float64(998877),
			"Giá":              "1,200,000₫",
			"Chi phí sửa chữa": "abc",
			"Ngày sử dụng":     "31/10/2025",
			"Trạng thái":       "Bảo trì",
			"Nguồn":            "cho mượn",
			"Cột lạ":           "bỏ qua",
		},
	})

	assert.Equal(t, 7, in.Line)
	assert.Equal(t, "M-07", in.CodeMachine)
	assert.Equal(t, "Máy khâu", in.TypeMachine)
	assert.Equal(t, "998877", in.SerialMachine)
	assert.Equal(t, int64(1200000), in.Price)
	assert.Equal(t, int64(0), in.RepairCost)
	require.NotNil(t, in.DateOfUse)
	assert.Equal(t, time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC), *in.DateOfUse)
	assert.Equal(t, "Thiết bị sản xuất", in.NameCategory)
	assert.Equal(t, "maintenance", in.CurrentStatus)
	assert.Equal(t, "borrowed_out", in.BorrowStatus)
}

func TestTranslate_Defaults(t *testing.T) {
	t.Parallel()

	tr := NewTranslator(nil, "")
	in := tr.Translate(RawRow{Line: 2, Cells: map[string]any{
		"Loại máy":     "Máy cắt",
		"Ngày sử dụng": "not-a-date",
		"Trạng thái":   "chưa rõ",
	}})

	assert.Equal(t, "", in.SerialMachine)
	assert.Nil(t, in.DateOfUse)
	// 无法识别的状态原样保留
	assert.Equal(t, "chưa rõ", in.CurrentStatus)
	assert.Equal(t, "internal", in.BorrowStatus)
}

func TestTranslate_BoundColumnsFollowColumnOrder(t *testing.T) {
	t.Parallel()

	headers := []string{"Số serial", "Loại máy", "Serial"}
	row := RawRow{
		Line:   2,
		Cells:  map[string]any{"Số serial": "SN-A", "Loại máy": "Máy khâu", "Serial": "SN-B"},
		Values: []any{"SN-A", "Máy khâu", "SN-B"},
	}

	in := NewTranslator(nil, "").ForHeaders(headers).Translate(row)
	assert.Equal(t, "SN-A", in.SerialMachine)
	assert.Equal(t, "Máy khâu", in.TypeMachine)

	// 第一列为空时不回退到后面的重复列
	row.Values = []any{nil, "Máy khâu", "SN-B"}
	in = NewTranslator(nil, "").ForHeaders(headers).Translate(row)
	assert.Equal(t, "", in.SerialMachine)
}
