package service

import (
	"testing"

	"golang.org/x/text/encoding/unicode"

	pkgerrors "study-tracker/backend/pkg/errors"
)

func newTestParser() *Parser {
	return NewParser(testImportConfig())
}

func assertParseError(t *testing.T, err error) {
	t.Helper()
	if !pkgerrors.IsKind(err, pkgerrors.KindParse) {
		t.Fatalf("期望 ParseError，实际=%v", err)
	}
}

func TestParser_Parse_Basic(t *testing.T) {
	table, err := newTestParser().Parse([]byte("Code,Title,Weight\nM1,Quiz 1,20\nBAD,,abc"))
	if err != nil {
		t.Fatalf("Parse 应成功: %v", err)
	}
	if len(table.Headers) != 3 {
		t.Fatalf("期望 3 个表头，实际=%v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("期望 2 行数据，实际=%d", len(table.Rows))
	}
	if table.Rows[0].Number != 2 || table.Rows[1].Number != 3 {
		t.Errorf("行号应从 2 开始，实际=%d,%d", table.Rows[0].Number, table.Rows[1].Number)
	}
	if table.Rows[1].Values["Title"] != "" || table.Rows[1].Values["Weight"] != "abc" {
		t.Errorf("第 3 行取值错误: %v", table.Rows[1].Values)
	}
}

func TestParser_Parse_QuotedFields(t *testing.T) {
	table, err := newTestParser().Parse([]byte("A,B\n\"x, y\",\"multi\nline\"\n"))
	if err != nil {
		t.Fatalf("Parse 应成功: %v", err)
	}
	if table.Rows[0].Values["A"] != "x, y" || table.Rows[0].Values["B"] != "multi\nline" {
		t.Errorf("引号字段解析错误: %v", table.Rows[0].Values)
	}
}

func TestParser_Parse_SkipsBlankRows(t *testing.T) {
	table, err := newTestParser().Parse([]byte("A,B\n\n1,2\n,\n3,4\n"))
	if err != nil {
		t.Fatalf("Parse 应成功: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("空行应被跳过，实际行数=%d", len(table.Rows))
	}
	if table.Rows[0].Number != 3 || table.Rows[1].Number != 5 {
		t.Errorf("行号应对应文件行，实际=%d,%d", table.Rows[0].Number, table.Rows[1].Number)
	}
}

func TestParser_Parse_UTF8BOM(t *testing.T) {
	table, err := newTestParser().Parse([]byte("\xEF\xBB\xBFCode,Title\nM1,A\n"))
	if err != nil {
		t.Fatalf("Parse 应成功: %v", err)
	}
	if table.Headers[0] != "Code" {
		t.Errorf("BOM 应被去除，实际表头=%q", table.Headers[0])
	}
}

func TestParser_Parse_UTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	raw, err := enc.Bytes([]byte("Code,Title\nM1,高等数学\n"))
	if err != nil {
		t.Fatalf("编码失败: %v", err)
	}

	table, err := newTestParser().Parse(raw)
	if err != nil {
		t.Fatalf("UTF-16 文件应可解析: %v", err)
	}
	if table.Headers[0] != "Code" || table.Rows[0].Values["Title"] != "高等数学" {
		t.Errorf("UTF-16 解码错误: %v %v", table.Headers, table.Rows[0].Values)
	}
}

func TestParser_Parse_InvalidEncoding(t *testing.T) {
	_, err := newTestParser().Parse([]byte("Code,Title\nM1,\xff\xfdA\n"))
	assertParseError(t, err)
}

func TestParser_Parse_ReplacementCharInUTF8(t *testing.T) {
	table, err := newTestParser().Parse([]byte("Code,Title\nM1,A\uFFFDB\n"))
	if err != nil {
		t.Fatalf("合法 UTF-8 中的 U+FFFD 不应被拒绝: %v", err)
	}
	if table.Rows[0].Values["Title"] != "A\uFFFDB" {
		t.Errorf("单元格内容应原样保留，实际=%q", table.Rows[0].Values["Title"])
	}
}

func TestParser_Parse_UTF16LoneSurrogate(t *testing.T) {
	// UTF-16LE BOM + "A" + 孤立高代理 + "\n"
	raw := []byte{0xFF, 0xFE, 'A', 0x00, 0x00, 0xD8, '\n', 0x00}
	_, err := newTestParser().Parse(raw)
	assertParseError(t, err)
}

func TestParser_Parse_HeaderRules(t *testing.T) {
	p := newTestParser()

	_, err := p.Parse([]byte("A,A\n1,2\n"))
	assertParseError(t, err)

	_, err = p.Parse([]byte("A,,B\n1,2,3\n"))
	assertParseError(t, err)

	table, err := p.Parse([]byte("A,B,,\n1,2,,\n"))
	if err != nil {
		t.Fatalf("尾部空表头应被忽略: %v", err)
	}
	if len(table.Headers) != 2 {
		t.Errorf("期望 2 个表头，实际=%v", table.Headers)
	}
}

func TestParser_Parse_ColumnTolerance(t *testing.T) {
	p := newTestParser()

	table, err := p.Parse([]byte("A,B,C\n1,2\n4,5,6,7\n"))
	if err != nil {
		t.Fatalf("容差内的列数差异应被接受: %v", err)
	}
	if table.Rows[0].Values["C"] != "" {
		t.Errorf("短行应补空，实际=%q", table.Rows[0].Values["C"])
	}
	if len(table.Rows[1].Values) != 3 {
		t.Errorf("多余列应被丢弃，实际=%v", table.Rows[1].Values)
	}

	_, err = p.Parse([]byte("A,B,C\n1\n"))
	assertParseError(t, err)
}

func TestParser_Parse_EmptyAndLimits(t *testing.T) {
	p := newTestParser()

	_, err := p.Parse([]byte(""))
	assertParseError(t, err)

	_, err = p.Parse([]byte("A,B\n"))
	assertParseError(t, err)

	cfg := testImportConfig()
	cfg.MaxRows = 2
	_, err = NewParser(cfg).Parse([]byte("A\n1\n2\n3\n"))
	assertParseError(t, err)
}
