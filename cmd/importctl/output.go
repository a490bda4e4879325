package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"study-tracker/backend/internal/service"
)

type cmdOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Result     any    `json:"result"`
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readSource 读取输入文件；xlsx 转换为分隔文本
func readSource(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return service.ConvertXLSX(f)
	}
	return io.ReadAll(f)
}

// parseMappingFlags 解析重复的 --map header=field；表头中可包含等号，以最后一个等号分隔
func parseMappingFlags(pairs []string) (map[string]string, error) {
	mapping := make(map[string]string, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, "=")
		if i <= 0 || i == len(p)-1 {
			return nil, fmt.Errorf("invalid --map %q, expected header=field", p)
		}
		header, field := strings.TrimSpace(p[:i]), strings.TrimSpace(p[i+1:])
		if _, dup := mapping[header]; dup {
			return nil, fmt.Errorf("header %q mapped more than once", header)
		}
		mapping[header] = field
	}
	return mapping, nil
}
