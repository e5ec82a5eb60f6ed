// 包 ingest：数据集读取、批量入库与索引重建调度
package ingest

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"poi-cluster/internal/catalog"
	"poi-cluster/internal/logger"

	"github.com/klauspost/compress/zstd"
)

// MinColumns 每行至少包含 经度,纬度,名称,国家,电话
const MinColumns = 5

// ParseLine 解析一行；列数不足或坐标无法解析时返回 false
func ParseLine(line string) (catalog.Record, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < MinColumns {
		return catalog.Record{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return catalog.Record{}, false
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return catalog.Record{}, false
	}
	return catalog.Record{
		Lat:   lat,
		Lon:   lon,
		Place: catalog.Place{Name: parts[2], Country: parts[3], Phone: parts[4]},
	}, true
}

// 文档注释：逐行解析数据集
// 背景：空行跳过且不计数；格式错误的行只计入 Malformed 并记录 debug 日志，不中断导入。
// 返回：Report 仅填写 Total 与 Malformed；读取错误直接返回。
func Parse(r io.Reader, fn func(catalog.Record)) (catalog.Report, error) {
	rep := catalog.NewReport()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rep.Total++
		rec, ok := ParseLine(line)
		if !ok {
			rep.Malformed++
			logger.L().Debug("dataset_row_malformed", "line", lineNo)
			continue
		}
		fn(rec)
	}
	if err := sc.Err(); err != nil {
		return rep, err
	}
	return rep, nil
}

type zstdReadCloser struct {
	*zstd.Decoder
	f *os.File
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

// Open 打开数据集文件；.zst 后缀透明解压
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return zstdReadCloser{Decoder: dec, f: f}, nil
}

// ReadFile 打开并解析数据集文件
func ReadFile(path string, fn func(catalog.Record)) (catalog.Report, error) {
	rc, err := Open(path)
	if err != nil {
		return catalog.NewReport(), err
	}
	defer rc.Close()
	return Parse(rc, fn)
}
