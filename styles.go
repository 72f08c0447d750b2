package xlreport

import "github.com/xuri/excelize/v2"

// Высоты строк заголовков, пункты.
const (
	headingRowHeight    = 48
	subheadingRowHeight = 24
)

func solidFill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

var (
	headerStyle = &excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      solidFill("4E5A7A"),
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}
	footerStyle = &excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: solidFill("E4E8F3"),
	}
	groupCaptionStyle = &excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      solidFill("8DB4E3"),
		Alignment: &excelize.Alignment{Horizontal: "left"},
	}
	groupSummaryStyle = &excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: solidFill("C5D9F1"),
	}
	noResultStyle = &excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Font:      &excelize.Font{Bold: true},
		Fill:      solidFill("FFEBA5"),
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}
	headingStyle = &excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "4E5A7A", Size: 24},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	}
	subheadingStyle = &excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "000000", Size: 18},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	}
	stripStyle = &excelize.Style{Fill: solidFill("F2F2F2")}
)

func alignStyle(h string) *excelize.Style {
	return &excelize.Style{Alignment: &excelize.Alignment{Horizontal: h}}
}

// pixelsToWidth переводит пиксели в единицы ширины колонки Excel.
func pixelsToWidth(px float64) float64 { return (px - 5) / 7 }
