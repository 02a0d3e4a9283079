package parser

// SheetRecognizer 台账 Sheet 识别器
type SheetRecognizer struct {
	mapper *FieldMapper
}

// NewSheetRecognizer 创建识别器
func NewSheetRecognizer(mapper *FieldMapper) *SheetRecognizer {
	if mapper == nil {
		mapper = NewFieldMapper()
	}
	return &SheetRecognizer{mapper: mapper}
}

// Recognize 按表头命中数计算置信度
func (r *SheetRecognizer) Recognize(sheetName string, columnNames []string) SheetRecognitionResult {
	matched := len(r.mapper.Map(columnNames))

	confidence := float64(matched) / float64(len(HeaderTable))
	// 必填列齐全时至少 0.5
	if r.mapper.CheckHeaders(columnNames) == nil && confidence < 0.5 {
		confidence = 0.5
	}

	return SheetRecognitionResult{
		SheetName:  sheetName,
		Matched:    matched,
		Confidence: confidence,
	}
}

// Best 选出置信度最高的 Sheet；并列时取靠前的，全部为 0 时返回第一个
func (r *SheetRecognizer) Best(results []SheetRecognitionResult) SheetRecognitionResult {
	if len(results) == 0 {
		return SheetRecognitionResult{}
	}
	best := results[0]
	for _, res := range results[1:] {
		if res.Confidence > best.Confidence {
			best = res
		}
	}
	return best
}
