package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"study-tracker/backend/config"
	pkgerrors "study-tracker/backend/pkg/errors"
)

// Table 解析后的表格
type Table struct {
	Headers []string
	Rows    []Row
}

// Row 数据行；Number 为该记录在文件中的起始行号（表头为第 1 行）
type Row struct {
	Number int
	Values map[string]string
}

// Parser 分隔文本解析器，不含业务知识
type Parser struct {
	maxRows   int
	tolerance int
}

// NewParser 创建解析器
func NewParser(cfg *config.ImportConfig) *Parser {
	return &Parser{maxRows: cfg.MaxRows, tolerance: cfg.ColumnTolerance}
}

// ────────────────────── Parse ──────────────────────

// Parse 解析原始文本：首行为表头，逗号分隔，支持引号
func (p *Parser) Parse(raw []byte) (*Table, error) {
	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	headers, err := p.readHeader(r)
	if err != nil {
		return nil, err
	}

	table := &Table{Headers: headers}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvParseError(err)
		}
		line, _ := r.FieldPos(0)

		// 跳过全空行
		if isBlankRecord(record) {
			continue
		}

		record = trimTrailingEmpty(record, len(headers))
		if diff := len(record) - len(headers); diff > p.tolerance || -diff > p.tolerance {
			return nil, pkgerrors.Parsef("第 %d 行列数为 %d，与表头列数 %d 不一致", line, len(record), len(headers))
		}

		if len(table.Rows) >= p.maxRows {
			return nil, pkgerrors.Parsef("数据行数超过上限 %d 行", p.maxRows)
		}

		values := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				values[h] = strings.TrimSpace(record[i])
			} else {
				values[h] = ""
			}
		}
		table.Rows = append(table.Rows, Row{Number: line, Values: values})
	}

	if len(table.Rows) == 0 {
		return nil, pkgerrors.Parsef("文件无数据行（第一行为表头）")
	}
	return table, nil
}

func (p *Parser) readHeader(r *csv.Reader) ([]string, error) {
	var header []string
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil, pkgerrors.Parsef("文件为空，缺少表头")
		}
		if err != nil {
			return nil, csvParseError(err)
		}
		if !isBlankRecord(record) {
			header = record
			break
		}
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header = trimTrailingEmpty(header, 0)

	seen := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			return nil, pkgerrors.Parsef("表头第 %d 列为空", i+1)
		}
		if prev, ok := seen[h]; ok {
			return nil, pkgerrors.Parsef("表头重复: %q（第 %d 列与第 %d 列）", h, prev+1, i+1)
		}
		seen[h] = i
	}
	return header, nil
}

// ── 编码处理 ──

// decodeText 识别并去除 UTF-8/UTF-16 BOM，解码后必须为合法 UTF-8
// UTF-16 解码器把非法代理对替换为 U+FFFD，因此仅对 UTF-16 输入检查替换字符
func decodeText(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(encoding.Nop.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", pkgerrors.Parsef("无法识别文件编码: %v", err)
	}
	if !utf8.Valid(out) || (hasUTF16BOM(raw) && bytes.ContainsRune(out, utf8.RuneError)) {
		return "", pkgerrors.Parsef("文件编码无法读取，请使用 UTF-8 保存")
	}
	return string(out), nil
}

func hasUTF16BOM(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF})
}

// ── xlsx 转换 ──

// ConvertXLSX 读取首个工作表并转换为逗号分隔文本
func ConvertXLSX(reader io.Reader) ([]byte, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, pkgerrors.Parsef("无法解析Excel文件: %v", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, pkgerrors.Parsef("读取工作表失败: %v", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("写入分隔文本失败: %w", err)
	}
	return buf.Bytes(), nil
}

// ── helpers ──

func csvParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return pkgerrors.Parsef("第 %d 行格式错误: %v", pe.StartLine, pe.Err)
	}
	return pkgerrors.Parsef("读取文件失败: %v", err)
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// trimTrailingEmpty 去除超出 keep 列的尾部空单元格
func trimTrailingEmpty(record []string, keep int) []string {
	n := len(record)
	for n > keep && strings.TrimSpace(record[n-1]) == "" {
		n--
	}
	return record[:n]
}
