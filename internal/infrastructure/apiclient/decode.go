package apiclient

import (
	"encoding/json"
	"fmt"
)

// DecodeList 解析列表响应，data为空时返回空切片
func DecodeList[T any](resp *Response) ([]T, error) {
	if resp == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		return nil, fmt.Errorf("解析列表响应失败: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// DecodeOne 解析单条记录
func DecodeOne[T any](resp *Response) (T, error) {
	var item T
	if resp == nil || len(resp.Data) == 0 {
		return item, nil
	}
	if err := json.Unmarshal(resp.Data, &item); err != nil {
		return item, fmt.Errorf("解析响应失败: %w", err)
	}
	return item, nil
}

// DecodeText 解析文本响应（CSV导出）
// 上游可能直接返回text/csv，也可能包在 {data: "..."} 里
func DecodeText(resp *Response) string {
	if resp == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(resp.Data, &s); err == nil {
		return s
	}
	return string(resp.Raw)
}
